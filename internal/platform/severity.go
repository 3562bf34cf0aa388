package platform

import "strings"

// Severity mirrors the levels used across every orchestrator: alert rules,
// backup failures and federation propagation all reuse the same scale so a
// single color/priority mapping can serve every notifier.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityColor returns the Discord/Slack embed color (decimal RGB) for a
// severity. One mapping shared by every provider and orchestrator, unlike
// the source system where the alert and backup notifiers disagreed.
func severityColor(s Severity) int {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return 0xE53935 // red
	case SeverityHigh:
		return 0xFB8C00 // orange
	case SeverityMedium:
		return 0xFDD835 // yellow
	case SeverityLow, SeverityInfo:
		return 0x43A047 // green
	default:
		return 0x757575 // gray
	}
}

// severityPriority maps a severity to the urgency vocabulary PagerDuty's
// Events API expects ("critical" and "high" map to "high" and page,
// "medium" maps to "normal", everything else maps to "low").
func severityPriority(s Severity) string {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical, SeverityHigh:
		return "high"
	case SeverityMedium:
		return "normal"
	default:
		return "low"
	}
}
