package database

import (
	"database/sql"
	"time"
)

// CPAlertRule is the persisted row shape for the alert engine's rule
// table (cp_alert_rules). It is kept distinct from the legacy AlertRule
// model: that one is scoped to a single host/service resource check,
// this one is scoped to an arbitrary metric name the way the rest of the
// control plane identifies series. Escalation is no longer a scalar
// escalate_after/escalate_severity pair on this row; it lives in
// cp_alert_escalation_steps, see EscalationStep.
type CPAlertRule struct {
	ID              string
	Name            string
	MetricName      string
	MetricMatch     string // "exact" | "prefix"
	Operator        string
	StaticThreshold float64
	Dynamic         bool
	Sensitivity     float64
	DurationSeconds int
	Severity        string
	CooldownSeconds int
	Enabled         bool
	ChannelIDsJSON  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CPAlertRuleRepository persists alert engine rules.
type CPAlertRuleRepository struct{}

func NewCPAlertRuleRepository() *CPAlertRuleRepository { return &CPAlertRuleRepository{} }

func (r *CPAlertRuleRepository) GetEnabled() ([]CPAlertRule, error) {
	rows, err := DB.Query(`SELECT id, name, metric_name, metric_match, operator, static_threshold,
		dynamic, sensitivity, duration_seconds, severity, cooldown_seconds,
		is_enabled, channel_ids, created_at, updated_at
		FROM cp_alert_rules WHERE is_enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CPAlertRule
	for rows.Next() {
		var rule CPAlertRule
		var dynamic, enabled int
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.MetricName, &rule.MetricMatch, &rule.Operator,
			&rule.StaticThreshold, &dynamic, &rule.Sensitivity, &rule.DurationSeconds, &rule.Severity,
			&rule.CooldownSeconds, &enabled, &rule.ChannelIDsJSON,
			&rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rule.Dynamic = dynamic != 0
		rule.Enabled = enabled != 0
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *CPAlertRuleRepository) Upsert(rule CPAlertRule) error {
	now := time.Now()
	_, err := DB.Exec(`INSERT INTO cp_alert_rules
		(id, name, metric_name, metric_match, operator, static_threshold, dynamic, sensitivity,
		 duration_seconds, severity, cooldown_seconds, is_enabled,
		 channel_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, metric_name=excluded.metric_name, metric_match=excluded.metric_match,
			operator=excluded.operator, static_threshold=excluded.static_threshold, dynamic=excluded.dynamic,
			sensitivity=excluded.sensitivity, duration_seconds=excluded.duration_seconds,
			severity=excluded.severity, cooldown_seconds=excluded.cooldown_seconds,
			is_enabled=excluded.is_enabled, channel_ids=excluded.channel_ids, updated_at=excluded.updated_at`,
		rule.ID, rule.Name, rule.MetricName, rule.MetricMatch, rule.Operator, rule.StaticThreshold,
		boolToInt(rule.Dynamic), rule.Sensitivity, rule.DurationSeconds, rule.Severity, rule.CooldownSeconds,
		boolToInt(rule.Enabled), rule.ChannelIDsJSON, now, now)
	return err
}

func (r *CPAlertRuleRepository) Delete(id string) error {
	_, err := DB.Exec(`DELETE FROM cp_alert_rules WHERE id = ?`, id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EscalationStep is one ordered rung of a rule's escalation ladder
// (cp_alert_escalation_steps), replacing the single scalar
// escalate_after/escalate_severity pair.
type EscalationStep struct {
	RuleID          string
	Level           int
	Threshold       float64
	DurationSeconds int
	Severity        string
}

// EscalationStepRepository persists per-rule escalation ladders.
type EscalationStepRepository struct{}

func NewEscalationStepRepository() *EscalationStepRepository { return &EscalationStepRepository{} }

func (r *EscalationStepRepository) Replace(ruleID string, steps []EscalationStep) error {
	return Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM cp_alert_escalation_steps WHERE rule_id = ?`, ruleID); err != nil {
			return err
		}
		for _, s := range steps {
			if _, err := tx.Exec(`INSERT INTO cp_alert_escalation_steps
				(rule_id, level, threshold, duration_seconds, severity) VALUES (?, ?, ?, ?, ?)`,
				ruleID, s.Level, s.Threshold, s.DurationSeconds, s.Severity); err != nil {
				return err
			}
		}
		return nil
	})
}

// ForRule returns a rule's escalation ladder ordered by ascending level.
func (r *EscalationStepRepository) ForRule(ruleID string) ([]EscalationStep, error) {
	rows, err := DB.Query(`SELECT rule_id, level, threshold, duration_seconds, severity
		FROM cp_alert_escalation_steps WHERE rule_id = ? ORDER BY level ASC`, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EscalationStep
	for rows.Next() {
		var s EscalationStep
		if err := rows.Scan(&s.RuleID, &s.Level, &s.Threshold, &s.DurationSeconds, &s.Severity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CPAlert is the persisted row shape for an active/acknowledged/resolved/
// suppressed alert.
type CPAlert struct {
	ID              string
	RuleID          string
	GroupID         string
	Fingerprint     string
	MetricName      string
	Value           float64
	Threshold       float64
	Severity        string
	Status          string
	LabelsJSON      string
	Message         string
	EscalatedAt     *time.Time
	EscalationLevel int
	AckBy           string
	AckAt           *time.Time
	FiredAt         time.Time
	ResolvedAt      *time.Time
}

// CPAlertRepository persists alert engine alert instances.
type CPAlertRepository struct{}

func NewCPAlertRepository() *CPAlertRepository { return &CPAlertRepository{} }

func (r *CPAlertRepository) Create(a CPAlert) error {
	_, err := DB.Exec(`INSERT INTO cp_alerts
		(id, rule_id, group_id, fingerprint, metric_name, value, threshold, severity, status,
		 labels, message, escalated_at, escalation_level, fired_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RuleID, a.GroupID, a.Fingerprint, a.MetricName, a.Value, a.Threshold, a.Severity,
		a.Status, a.LabelsJSON, a.Message, a.EscalatedAt, a.EscalationLevel, a.FiredAt, a.ResolvedAt)
	return err
}

func (r *CPAlertRepository) Resolve(id string, resolvedAt time.Time) error {
	_, err := DB.Exec(`UPDATE cp_alerts SET status = 'resolved', resolved_at = ? WHERE id = ?`, resolvedAt, id)
	return err
}

// Acknowledge moves an active alert to acknowledged, recording who
// acknowledged it and when.
func (r *CPAlertRepository) Acknowledge(id, ackBy string, ackAt time.Time) error {
	_, err := DB.Exec(`UPDATE cp_alerts SET status = 'acknowledged', ack_by = ?, ack_at = ? WHERE id = ?`,
		ackBy, ackAt, id)
	return err
}

// Suppress moves an alert (active or acknowledged) to suppressed, muting
// further re-notification without marking it resolved.
func (r *CPAlertRepository) Suppress(id string) error {
	_, err := DB.Exec(`UPDATE cp_alerts SET status = 'suppressed' WHERE id = ?`, id)
	return err
}

func (r *CPAlertRepository) Escalate(id string, severity string, level int, escalatedAt time.Time) error {
	_, err := DB.Exec(`UPDATE cp_alerts SET severity = ?, escalation_level = ?, escalated_at = ? WHERE id = ?`,
		severity, level, escalatedAt, id)
	return err
}

// GetActive returns every alert still considered live: firing or
// acknowledged. Resolved and suppressed alerts are excluded.
func (r *CPAlertRepository) GetActive() ([]CPAlert, error) {
	rows, err := DB.Query(`SELECT id, rule_id, group_id, fingerprint, metric_name, value, threshold,
		severity, status, labels, message, escalated_at, escalation_level, ack_by, ack_at, fired_at, resolved_at
		FROM cp_alerts WHERE status IN ('firing', 'acknowledged')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CPAlert
	for rows.Next() {
		var a CPAlert
		var groupID, ackBy sql.NullString
		var escalatedAt, ackAt, resolvedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.RuleID, &groupID, &a.Fingerprint, &a.MetricName, &a.Value,
			&a.Threshold, &a.Severity, &a.Status, &a.LabelsJSON, &a.Message, &escalatedAt,
			&a.EscalationLevel, &ackBy, &ackAt, &a.FiredAt, &resolvedAt); err != nil {
			return nil, err
		}
		if groupID.Valid {
			a.GroupID = groupID.String
		}
		if ackBy.Valid {
			a.AckBy = ackBy.String
		}
		if escalatedAt.Valid {
			t := escalatedAt.Time
			a.EscalatedAt = &t
		}
		if ackAt.Valid {
			t := ackAt.Time
			a.AckAt = &t
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ByID returns a single alert regardless of status, for lookups that need
// its current lifecycle state (e.g. confirming an acknowledge/suppress/
// resolve took effect).
func (r *CPAlertRepository) ByID(id string) (CPAlert, error) {
	row := DB.QueryRow(`SELECT id, rule_id, group_id, fingerprint, metric_name, value, threshold,
		severity, status, labels, message, escalated_at, escalation_level, ack_by, ack_at, fired_at, resolved_at
		FROM cp_alerts WHERE id = ?`, id)

	var a CPAlert
	var groupID, ackBy sql.NullString
	var escalatedAt, ackAt, resolvedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.RuleID, &groupID, &a.Fingerprint, &a.MetricName, &a.Value,
		&a.Threshold, &a.Severity, &a.Status, &a.LabelsJSON, &a.Message, &escalatedAt,
		&a.EscalationLevel, &ackBy, &ackAt, &a.FiredAt, &resolvedAt); err != nil {
		return CPAlert{}, err
	}
	if groupID.Valid {
		a.GroupID = groupID.String
	}
	if ackBy.Valid {
		a.AckBy = ackBy.String
	}
	if escalatedAt.Valid {
		t := escalatedAt.Time
		a.EscalatedAt = &t
	}
	if ackAt.Valid {
		t := ackAt.Time
		a.AckAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return a, nil
}
