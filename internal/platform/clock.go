// Package platform implements the shared runtime substrate used by every
// orchestrator: scheduling, metric storage, and outbound notifications.
package platform

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Clock wraps a cron scheduler and tracks registered jobs by name so
// orchestrators can add, replace and remove scheduled work without holding
// onto raw cron.EntryID values themselves.
type Clock struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewClock creates a Clock with second-level cron precision.
func NewClock() *Clock {
	return &Clock{
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled jobs in the background.
func (c *Clock) Start() {
	c.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (c *Clock) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// Every schedules fn to run every interval, expressed as a Go duration
// string such as "30s" or "5m" (translated to cron's "@every" syntax).
func (c *Clock) Every(name string, interval string, fn func()) error {
	return c.schedule(name, fmt.Sprintf("@every %s", interval), fn)
}

// AtCron schedules fn using a raw 6-field cron expression
// (seconds minutes hours day-of-month month day-of-week).
func (c *Clock) AtCron(name string, expr string, fn func()) error {
	return c.schedule(name, expr, fn)
}

func (c *Clock) schedule(name, spec string, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[name]; ok {
		c.cron.Remove(existing)
		delete(c.entries, name)
	}

	id, err := c.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Clock] job %q panicked: %v", name, r)
			}
		}()
		fn()
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", name, err)
	}

	c.entries[name] = id
	return nil
}

// Remove cancels a previously scheduled job. It is a no-op if the job does
// not exist.
func (c *Clock) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.entries[name]; ok {
		c.cron.Remove(id)
		delete(c.entries, name)
	}
}

// Jobs returns the names of all currently scheduled jobs.
func (c *Clock) Jobs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}
