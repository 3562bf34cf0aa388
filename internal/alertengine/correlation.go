package alertengine

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// correlationWindow bounds how far apart two alerts' fired times may be
// and still be considered for correlation.
const correlationWindow = 5 * time.Minute

// CorrelationEngine groups related alerts so operators see one incident
// instead of a storm of individually-firing rules. Correlation is tried,
// in order, by service label, then host label, then metric family (the
// portion of the metric name before the first underscore); a new group is
// created only when none of those match. Grounded on
// AlertCorrelationEngine.correlate_alerts.
type CorrelationEngine struct {
	mu     sync.Mutex
	groups map[string][]string // group id -> alert ids
}

// NewCorrelationEngine creates an empty correlation engine.
func NewCorrelationEngine() *CorrelationEngine {
	return &CorrelationEngine{groups: make(map[string][]string)}
}

// Correlate finds or creates a group id for newAlert given the currently
// active alerts. The returned group id is stable: calling Correlate again
// with the same label set soon after will rejoin the same group.
func (e *CorrelationEngine) Correlate(newAlert Alert, active []Alert) string {
	var recent []Alert
	for _, a := range active {
		if a.ID == newAlert.ID {
			continue
		}
		if absDuration(newAlert.FiredAt.Sub(a.FiredAt)) <= correlationWindow {
			recent = append(recent, a)
		}
	}

	if group := e.correlateByLabel(newAlert, recent, "service"); group != "" {
		return e.join(group, newAlert.ID)
	}
	if group := e.correlateByLabel(newAlert, recent, "host"); group != "" {
		return e.join(group, newAlert.ID)
	}
	if group := e.correlateByMetricFamily(newAlert, recent); group != "" {
		return e.join(group, newAlert.ID)
	}

	groupID := fmt.Sprintf("corr-%d-%s", time.Now().Unix(), shortHash(newAlert.ID))
	return e.join(groupID, newAlert.ID)
}

func (e *CorrelationEngine) correlateByLabel(newAlert Alert, recent []Alert, label string) string {
	value, ok := newAlert.Labels[label]
	if !ok || value == "" {
		return ""
	}
	for _, a := range recent {
		if a.Labels[label] == value && a.GroupID != "" {
			return a.GroupID
		}
	}
	return ""
}

func (e *CorrelationEngine) correlateByMetricFamily(newAlert Alert, recent []Alert) string {
	family := metricFamily(newAlert.MetricName)
	for _, a := range recent {
		if metricFamily(a.MetricName) == family && a.GroupID != "" {
			return a.GroupID
		}
	}
	return ""
}

func (e *CorrelationEngine) join(groupID, alertID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups[groupID] = append(e.groups[groupID], alertID)
	return groupID
}

// GroupCount returns the number of distinct correlation groups tracked.
func (e *CorrelationEngine) GroupCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.groups)
}

func metricFamily(metricName string) string {
	if idx := strings.IndexByte(metricName, '_'); idx >= 0 {
		return metricName[:idx]
	}
	return metricName
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
