package alertengine

import (
	"testing"
	"time"
)

func TestCorrelateByServiceJoinsExistingGroup(t *testing.T) {
	engine := NewCorrelationEngine()
	now := time.Now()

	first := Alert{ID: "a1", MetricName: "cpu_usage", Labels: map[string]string{"service": "api"}, FiredAt: now}
	first.GroupID = engine.Correlate(first, nil)

	second := Alert{ID: "a2", MetricName: "memory_usage", Labels: map[string]string{"service": "api"}, FiredAt: now.Add(time.Minute)}
	groupID := engine.Correlate(second, []Alert{first})

	if groupID != first.GroupID {
		t.Fatalf("expected alert with same service label to join group %q, got %q", first.GroupID, groupID)
	}
}

func TestCorrelateByMetricFamilyWhenNoSharedLabels(t *testing.T) {
	engine := NewCorrelationEngine()
	now := time.Now()

	first := Alert{ID: "a1", MetricName: "disk_usage", Labels: map[string]string{"host": "h1"}, FiredAt: now}
	first.GroupID = engine.Correlate(first, nil)

	second := Alert{ID: "a2", MetricName: "disk_errors", Labels: map[string]string{"host": "h2"}, FiredAt: now.Add(30 * time.Second)}
	groupID := engine.Correlate(second, []Alert{first})

	if groupID != first.GroupID {
		t.Fatalf("expected alert sharing metric family %q to join group %q, got %q", "disk", first.GroupID, groupID)
	}
}

func TestCorrelateOutsideWindowStartsNewGroup(t *testing.T) {
	engine := NewCorrelationEngine()
	now := time.Now()

	first := Alert{ID: "a1", MetricName: "cpu_usage", Labels: map[string]string{"service": "api"}, FiredAt: now}
	first.GroupID = engine.Correlate(first, nil)

	second := Alert{ID: "a2", MetricName: "cpu_usage", Labels: map[string]string{"service": "api"}, FiredAt: now.Add(10 * time.Minute)}
	groupID := engine.Correlate(second, []Alert{first})

	if groupID == first.GroupID {
		t.Fatal("expected alert outside the correlation window to start a new group")
	}
}

func TestLabelSignatureIsOrderIndependent(t *testing.T) {
	a := labelSignature(map[string]string{"host": "h1", "service": "api"})
	b := labelSignature(map[string]string{"service": "api", "host": "h1"})
	if a != b {
		t.Fatalf("expected stable signature regardless of map iteration order: %q != %q", a, b)
	}
}

func TestAlertFingerprintIsDeterministicForSameInputs(t *testing.T) {
	at := time.Unix(1700000000, 0)
	labels := map[string]string{"host": "h1"}

	a := alertFingerprint("rule-1", labels, at)
	b := alertFingerprint("rule-1", labels, at)
	if a != b {
		t.Fatalf("expected same inputs to produce the same fingerprint: %q != %q", a, b)
	}

	c := alertFingerprint("rule-2", labels, at)
	if a == c {
		t.Fatal("expected different rule ids to produce different fingerprints")
	}
}
