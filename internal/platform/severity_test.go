package platform

import "testing"

func TestSeverityColorSharedAcrossOrchestrators(t *testing.T) {
	cases := []struct {
		severity Severity
		want     int
	}{
		{SeverityCritical, 0xE53935},
		{SeverityHigh, 0xFB8C00},
		{SeverityMedium, 0xFDD835},
		{SeverityLow, 0x43A047},
		{SeverityInfo, 0x43A047},
	}
	for _, c := range cases {
		if got := severityColor(c.severity); got != c.want {
			t.Errorf("severityColor(%s) = %#x, want %#x", c.severity, got, c.want)
		}
	}
}

func TestSeverityPriorityPagesOnlyHighAndCritical(t *testing.T) {
	if severityPriority(SeverityCritical) != "high" {
		t.Error("critical should page")
	}
	if severityPriority(SeverityHigh) != "high" {
		t.Error("high should page")
	}
	if severityPriority(SeverityMedium) != "normal" {
		t.Error("medium should not page")
	}
	if severityPriority(SeverityInfo) != "low" {
		t.Error("info should not page")
	}
}
