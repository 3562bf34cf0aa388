package alertengine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

// setupEngineTest connects a throwaway sqlite database (migrations run
// automatically via database.Connect) and returns an Orchestrator wired
// against it, plus a cleanup func.
func setupEngineTest(t *testing.T) *Orchestrator {
	t.Helper()
	if err := database.Connect(filepath.Join(t.TempDir(), "engine_test.db")); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	sink := platform.NewSink()
	notifier := platform.NewNotifier() // no providers registered: Dispatch is a no-op
	return NewOrchestrator(sink, notifier, time.Hour)
}

func mustUpsertRule(t *testing.T, rule database.CPAlertRule) {
	t.Helper()
	repo := database.NewCPAlertRuleRepository()
	if err := repo.Upsert(rule); err != nil {
		t.Fatalf("upsert rule: %v", err)
	}
}

func mustReplaceSteps(t *testing.T, ruleID string, steps []database.EscalationStep) {
	t.Helper()
	repo := database.NewEscalationStepRepository()
	if err := repo.Replace(ruleID, steps); err != nil {
		t.Fatalf("replace escalation steps: %v", err)
	}
}

// TestEngineLifecycle drives a single rule through evaluate -> create ->
// escalate -> resolve, and separately through acknowledge and suppress,
// asserting the orchestrator's in-memory and persisted state at each step.
func TestEngineLifecycle(t *testing.T) {
	o := setupEngineTest(t)

	mustUpsertRule(t, database.CPAlertRule{
		ID:              "rule-cpu",
		Name:            "High CPU",
		MetricName:      "cpu_usage_percent",
		MetricMatch:     string(MatchExact),
		Operator:        string(OpGT),
		StaticThreshold: 80,
		DurationSeconds: 0, // one sample is enough to breach
		Severity:        string(platform.SeverityHigh),
		CooldownSeconds: 0,
		Enabled:         true,
		ChannelIDsJSON:  "[]",
	})
	mustReplaceSteps(t, "rule-cpu", []database.EscalationStep{
		{RuleID: "rule-cpu", Level: 1, Threshold: 80, DurationSeconds: 0, Severity: string(platform.SeverityCritical)},
	})

	labels := map[string]string{"host": "node-1"}

	// evaluate -> create: first breach fires a new alert.
	o.evaluate(Sample{MetricName: "cpu_usage_percent", Value: 95, Labels: labels, Time: time.Now()})

	active := o.ActiveAlerts()
	if len(active) != 1 {
		t.Fatalf("got %d active alerts, want 1", len(active))
	}
	alert := active[0]
	if alert.Status != StatusFiring {
		t.Fatalf("status = %s, want firing", alert.Status)
	}
	if alert.Severity != platform.SeverityHigh {
		t.Fatalf("severity = %s, want high", alert.Severity)
	}
	if alert.EscalationLevel != 0 {
		t.Fatalf("escalation level = %d, want 0", alert.EscalationLevel)
	}

	persisted, err := database.NewCPAlertRepository().GetActive()
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if len(persisted) != 1 || persisted[0].ID != alert.ID {
		t.Fatalf("expected the new alert to be persisted active, got %+v", persisted)
	}

	// evaluate again: still breached, same cycle re-triggers the escalation
	// check (duration 0 means the step's wait has already elapsed).
	o.evaluate(Sample{MetricName: "cpu_usage_percent", Value: 97, Labels: labels, Time: time.Now()})

	active = o.ActiveAlerts()
	if len(active) != 1 {
		t.Fatalf("got %d active alerts after escalation, want 1", len(active))
	}
	escalated := active[0]
	if escalated.EscalationLevel != 1 {
		t.Fatalf("escalation level = %d, want 1", escalated.EscalationLevel)
	}
	if escalated.Severity != platform.SeverityCritical {
		t.Fatalf("severity after escalation = %s, want critical", escalated.Severity)
	}
	if escalated.ID != alert.ID {
		t.Fatalf("escalation should mutate the existing alert, not create a new one")
	}

	// evaluate below threshold: resolves the alert.
	o.evaluate(Sample{MetricName: "cpu_usage_percent", Value: 10, Labels: labels, Time: time.Now()})

	if active := o.ActiveAlerts(); len(active) != 0 {
		t.Fatalf("got %d active alerts after resolution, want 0", len(active))
	}

	row, err := database.NewCPAlertRepository().ByID(escalated.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if row.Status != string(StatusResolved) {
		t.Fatalf("persisted status = %s, want resolved", row.Status)
	}
	if row.ResolvedAt == nil {
		t.Fatalf("resolved alert missing ResolvedAt")
	}
}

// TestEngineAcknowledgeAndSuppress exercises the two lifecycle branches
// that don't run through the breach/resolve path: an operator
// acknowledging a live alert, and an operator suppressing one.
func TestEngineAcknowledgeAndSuppress(t *testing.T) {
	o := setupEngineTest(t)

	mustUpsertRule(t, database.CPAlertRule{
		ID:              "rule-mem",
		Name:            "High Memory",
		MetricName:      "memory_usage_percent",
		MetricMatch:     string(MatchExact),
		Operator:        string(OpGT),
		StaticThreshold: 90,
		DurationSeconds: 0,
		Severity:        string(platform.SeverityMedium),
		CooldownSeconds: 0,
		Enabled:         true,
		ChannelIDsJSON:  "[]",
	})

	o.evaluate(Sample{MetricName: "memory_usage_percent", Value: 95, Labels: nil, Time: time.Now()})
	active := o.ActiveAlerts()
	if len(active) != 1 {
		t.Fatalf("got %d active alerts, want 1", len(active))
	}
	alertID := active[0].ID

	if err := o.Acknowledge(alertID, "oncall-jane"); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	acked := o.ActiveAlerts()
	if len(acked) != 1 {
		t.Fatalf("acknowledged alert should remain active, got %d", len(acked))
	}
	if acked[0].Status != StatusAcknowledged {
		t.Fatalf("status = %s, want acknowledged", acked[0].Status)
	}
	if acked[0].AckBy != "oncall-jane" {
		t.Fatalf("ack_by = %q, want oncall-jane", acked[0].AckBy)
	}
	if acked[0].AckAt == nil {
		t.Fatalf("ack_at not set")
	}

	row, err := database.NewCPAlertRepository().ByID(alertID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if row.Status != string(StatusAcknowledged) || row.AckBy != "oncall-jane" {
		t.Fatalf("acknowledge not persisted: %+v", row)
	}

	if err := o.Suppress(alertID); err != nil {
		t.Fatalf("Suppress: %v", err)
	}

	if active := o.ActiveAlerts(); len(active) != 0 {
		t.Fatalf("suppressed alert should leave the active set, got %d", len(active))
	}

	row, err = database.NewCPAlertRepository().ByID(alertID)
	if err != nil {
		t.Fatalf("ByID after suppress: %v", err)
	}
	if row.Status != string(StatusSuppressed) {
		t.Fatalf("persisted status = %s, want suppressed", row.Status)
	}
}
