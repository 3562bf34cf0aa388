// Package alertengine implements dynamic threshold calculation, rule
// evaluation, alert correlation, lifecycle and escalation, using a
// breach-count + cooldown + mutex-guarded map idiom for the evaluator loop.
package alertengine

import (
	"encoding/json"
	"time"

	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

// Operator is a threshold comparison operator.
type Operator string

const (
	OpGT  Operator = ">"
	OpGTE Operator = ">="
	OpLT  Operator = "<"
	OpLTE Operator = "<="
	OpEQ  Operator = "=="
	OpNEQ Operator = "!="
)

// MetricMatch controls how a rule's MetricName is matched against an
// incoming sample's metric name.
type MetricMatch string

const (
	MatchExact  MetricMatch = "exact"
	MatchPrefix MetricMatch = "prefix"
)

// EscalationStep is one rung of a rule's escalation ladder: if the breach
// persists for Duration and the observed value still crosses Threshold,
// the alert's severity is bumped to Severity and its EscalationLevel set
// to Level. Steps are walked in ascending Level order, replacing a single
// scalar escalate-after/escalate-severity pair.
type EscalationStep struct {
	Level     int
	Threshold float64
	Duration  time.Duration
	Severity  platform.Severity
}

// Rule is an alert rule: what metric to watch, how to compare it to a
// threshold (static or dynamic), how long a breach must persist, and where
// to notify.
type Rule struct {
	ID               string
	Name             string
	MetricName       string
	MetricMatch      MetricMatch
	Operator         Operator
	StaticThreshold  float64
	Dynamic          bool
	Sensitivity      float64
	Duration         time.Duration
	Severity         platform.Severity
	Cooldown         time.Duration
	EscalationSteps  []EscalationStep
	Enabled          bool
	ChannelIDs       []string
}

// Matches reports whether a sample named metricName should be evaluated
// against this rule.
func (r Rule) Matches(metricName string) bool {
	if r.MetricMatch == MatchPrefix {
		return len(metricName) >= len(r.MetricName) && metricName[:len(r.MetricName)] == r.MetricName
	}
	return metricName == r.MetricName
}

func ruleFromRow(row database.CPAlertRule, steps []database.EscalationStep) Rule {
	var channelIDs []string
	json.Unmarshal([]byte(row.ChannelIDsJSON), &channelIDs)

	escalationSteps := make([]EscalationStep, 0, len(steps))
	for _, s := range steps {
		escalationSteps = append(escalationSteps, EscalationStep{
			Level:     s.Level,
			Threshold: s.Threshold,
			Duration:  time.Duration(s.DurationSeconds) * time.Second,
			Severity:  platform.Severity(s.Severity),
		})
	}

	return Rule{
		ID:              row.ID,
		Name:            row.Name,
		MetricName:      row.MetricName,
		MetricMatch:     MetricMatch(row.MetricMatch),
		Operator:        Operator(row.Operator),
		StaticThreshold: row.StaticThreshold,
		Dynamic:         row.Dynamic,
		Sensitivity:     row.Sensitivity,
		Duration:        time.Duration(row.DurationSeconds) * time.Second,
		Severity:        platform.Severity(row.Severity),
		Cooldown:        time.Duration(row.CooldownSeconds) * time.Second,
		EscalationSteps: escalationSteps,
		Enabled:         row.Enabled,
		ChannelIDs:      channelIDs,
	}
}

// Status is an alert's lifecycle state.
type Status string

const (
	StatusFiring       Status = "firing"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusSuppressed   Status = "suppressed"
)

// Alert is one instance of a rule being breached for a particular set of
// labels (e.g. a specific host or service).
type Alert struct {
	ID              string
	RuleID          string
	GroupID         string
	Fingerprint     string
	MetricName      string
	Value           float64
	Threshold       float64
	Severity        platform.Severity
	Status          Status
	Labels          map[string]string
	Message         string
	EscalatedAt     *time.Time
	EscalationLevel int
	AckBy           string
	AckAt           *time.Time
	FiredAt         time.Time
	ResolvedAt      *time.Time
}

func (a Alert) toRow() database.CPAlert {
	labelsJSON, _ := json.Marshal(a.Labels)
	return database.CPAlert{
		ID:              a.ID,
		RuleID:          a.RuleID,
		GroupID:         a.GroupID,
		Fingerprint:     a.Fingerprint,
		MetricName:      a.MetricName,
		Value:           a.Value,
		Threshold:       a.Threshold,
		Severity:        string(a.Severity),
		Status:          string(a.Status),
		LabelsJSON:      string(labelsJSON),
		Message:         a.Message,
		EscalatedAt:     a.EscalatedAt,
		EscalationLevel: a.EscalationLevel,
		AckBy:           a.AckBy,
		AckAt:           a.AckAt,
		FiredAt:         a.FiredAt,
		ResolvedAt:      a.ResolvedAt,
	}
}

func alertFromRow(row database.CPAlert) Alert {
	var labels map[string]string
	json.Unmarshal([]byte(row.LabelsJSON), &labels)

	return Alert{
		ID:              row.ID,
		RuleID:          row.RuleID,
		GroupID:         row.GroupID,
		Fingerprint:     row.Fingerprint,
		MetricName:      row.MetricName,
		Value:           row.Value,
		Threshold:       row.Threshold,
		Severity:        platform.Severity(row.Severity),
		Status:          Status(row.Status),
		Labels:          labels,
		Message:         row.Message,
		EscalatedAt:     row.EscalatedAt,
		EscalationLevel: row.EscalationLevel,
		AckBy:           row.AckBy,
		AckAt:           row.AckAt,
		FiredAt:         row.FiredAt,
		ResolvedAt:      row.ResolvedAt,
	}
}
