package alertengine

import "testing"

func TestClampDynamicThresholdNeverLoosensUpperBound(t *testing.T) {
	// mean+sensitivity*stddev below the static threshold must not lower it.
	got := clampDynamicThreshold(OpGT, 80, 50, 2, 2.0)
	if got != 80 {
		t.Fatalf("got %v, want static threshold 80 (dynamic value would loosen it)", got)
	}

	// A genuinely elevated mean should raise the effective threshold.
	got = clampDynamicThreshold(OpGT, 80, 90, 5, 2.0)
	if got != 100 {
		t.Fatalf("got %v, want 100 (90 + 2*5)", got)
	}
}

func TestClampDynamicThresholdNeverLoosensLowerBound(t *testing.T) {
	got := clampDynamicThreshold(OpLT, 20, 50, 2, 2.0)
	if got != 20 {
		t.Fatalf("got %v, want static threshold 20 (dynamic value would loosen it)", got)
	}

	got = clampDynamicThreshold(OpLT, 20, 10, 3, 2.0)
	if got != 4 {
		t.Fatalf("got %v, want 4 (10 - 2*3)", got)
	}
}

func TestBreachedOperators(t *testing.T) {
	cases := []struct {
		value, threshold float64
		op               Operator
		want             bool
	}{
		{90, 80, OpGT, true},
		{80, 80, OpGT, false},
		{80, 80, OpGTE, true},
		{70, 80, OpLT, true},
		{80, 80, OpLTE, true},
		{0, 0, OpEQ, true},
		{0.0001, 0, OpEQ, true},
		{1, 0, OpEQ, false},
		{1, 0, OpNEQ, true},
	}
	for _, c := range cases {
		if got := Breached(c.value, c.op, c.threshold); got != c.want {
			t.Errorf("Breached(%v, %s, %v) = %v, want %v", c.value, c.op, c.threshold, got, c.want)
		}
	}
}
