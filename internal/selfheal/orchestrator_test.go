package selfheal

import (
	"context"
	"testing"
	"time"

	"github.com/millsmillsymills/controlplane/internal/container"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

type fakeContainers struct {
	health     []container.Health
	starts     []string
	restarts   []string
	kills      []string
	afterStart container.Status
}

func (f *fakeContainers) ListHealth(ctx context.Context) ([]container.Health, error) {
	return f.health, nil
}
func (f *fakeContainers) Start(ctx context.Context, name string) error {
	f.starts = append(f.starts, name)
	f.setStatus(name, f.afterStart)
	return nil
}
func (f *fakeContainers) Stop(ctx context.Context, name string) error { return nil }
func (f *fakeContainers) Restart(ctx context.Context, name string) error {
	f.restarts = append(f.restarts, name)
	f.setStatus(name, f.afterStart)
	return nil
}
func (f *fakeContainers) Kill(ctx context.Context, name string) error {
	f.kills = append(f.kills, name)
	return nil
}
func (f *fakeContainers) SystemCleanup(ctx context.Context) (container.CleanupReport, error) {
	return container.CleanupReport{}, nil
}
func (f *fakeContainers) setStatus(name string, s container.Status) {
	for i, h := range f.health {
		if h.Name == name {
			f.health[i].Status = s
			f.health[i].Issues = nil
		}
	}
}

func TestHasIssue(t *testing.T) {
	issues := []string{"container not running: exited"}
	if !hasIssue(issues, "not running") {
		t.Fatal("expected substring match")
	}
	if hasIssue(issues, "memory usage") {
		t.Fatal("expected no match")
	}
}

func TestAttemptRecoveryStartsStoppedContainer(t *testing.T) {
	fake := &fakeContainers{
		health: []container.Health{
			{Name: "api", Status: container.StatusCritical, Issues: []string{"container not running: exited"}},
		},
		afterStart: container.StatusHealthy,
	}
	notifier := platform.NewNotifier()
	clock := platform.NewClock()
	o := New(fake, notifier, clock, 3, time.Millisecond)

	o.attemptRecovery(context.Background(), fake.health[0])

	if len(fake.starts) != 1 || fake.starts[0] != "api" {
		t.Fatalf("expected Start to be called once for api, got %v", fake.starts)
	}
	if o.StatsSnapshot().SuccessfulRecoveries != 1 {
		t.Fatalf("expected 1 successful recovery, got %d", o.StatsSnapshot().SuccessfulRecoveries)
	}
}

func TestAttemptRecoveryBlacklistsAfterMaxAttempts(t *testing.T) {
	fake := &fakeContainers{
		health: []container.Health{
			{Name: "flaky", Status: container.StatusCritical, Issues: []string{"container health check failed"}},
		},
		afterStart: container.StatusCritical, // recovery never actually succeeds
	}
	notifier := platform.NewNotifier()
	clock := platform.NewClock()
	o := New(fake, notifier, clock, 2, time.Nanosecond)

	for i := 0; i < 3; i++ {
		o.attemptRecovery(context.Background(), fake.health[0])
	}

	o.mu.Lock()
	st := o.recovery["flaky"]
	o.mu.Unlock()
	if st == nil || !st.blacklisted {
		t.Fatal("expected service to be blacklisted after exceeding max attempts")
	}
}
