package platform

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsOnePerSuppressWindow(t *testing.T) {
	r := newRateLimiter()

	if !r.allow("slack", "rule-1", time.Minute) {
		t.Fatal("expected first send to be allowed")
	}
	if r.allow("slack", "rule-1", time.Minute) {
		t.Fatal("expected second send within the suppress window to be rate-limited")
	}
	r.lastSent["slack|rule-1"] = time.Now().Add(-2 * time.Minute)
	if !r.allow("slack", "rule-1", time.Minute) {
		t.Fatal("expected a send after the suppress window to be allowed")
	}
}

func TestRateLimiterIsolatedPerChannelAndRule(t *testing.T) {
	r := newRateLimiter()

	if !r.allow("slack", "rule-1", time.Minute) {
		t.Fatal("expected slack/rule-1 to be allowed")
	}
	if !r.allow("pagerduty", "rule-1", time.Minute) {
		t.Fatal("expected pagerduty/rule-1 to be allowed independently of slack")
	}
	if !r.allow("slack", "rule-2", time.Minute) {
		t.Fatal("expected slack/rule-2 to be allowed independently of rule-1")
	}
	if r.allow("slack", "rule-1", time.Minute) {
		t.Fatal("expected slack/rule-1 to now be rate-limited")
	}
}
