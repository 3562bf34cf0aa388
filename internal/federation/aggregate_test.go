package federation

import "testing"

func TestAggregateWeightedAverage(t *testing.T) {
	samples := []MetricSample{
		{Name: "cpu_usage_percent", Value: 10, Weight: 1, NodeID: "a", Labels: map[string]string{"region": "us"}},
		{Name: "cpu_usage_percent", Value: 30, Weight: 3, NodeID: "b", Labels: map[string]string{"region": "us"}},
	}
	m, ok := Aggregate("cpu_usage_percent", samples, AggWeightedAverage)
	if !ok {
		t.Fatal("expected aggregation to succeed")
	}
	want := (10*1.0 + 30*3.0) / 4.0
	if m.Value != want {
		t.Fatalf("got %v, want %v", m.Value, want)
	}
	if m.NodeCount != 2 {
		t.Fatalf("expected 2 distinct nodes, got %d", m.NodeCount)
	}
	if m.Labels["region"] != "us" {
		t.Fatalf("expected common label to survive merge, got %v", m.Labels)
	}
}

func TestAggregateSumConfidenceScalesWithSampleCount(t *testing.T) {
	samples := []MetricSample{{Value: 1, NodeID: "a"}, {Value: 2, NodeID: "b"}}
	m, ok := Aggregate("request_count", samples, AggSum)
	if !ok {
		t.Fatal("expected aggregation to succeed")
	}
	if m.Value != 3 {
		t.Fatalf("got %v, want 3", m.Value)
	}
	if m.Confidence != 0.4 {
		t.Fatalf("got confidence %v, want 0.4 (2/5)", m.Confidence)
	}
}

func TestMergeLabelsDivergentValuesBecomeMultiple(t *testing.T) {
	labels := mergeLabels([]map[string]string{
		{"service": "api", "host": "h1"},
		{"service": "api", "host": "h2"},
	})
	if labels["service"] != "api" {
		t.Fatalf("expected consistent label to survive, got %v", labels["service"])
	}
	if labels["host"] != "multiple[2]" {
		t.Fatalf("expected divergent label to become multiple[2], got %v", labels["host"])
	}
}

func TestAlertFingerprintMatchesKeyLabelOrder(t *testing.T) {
	a := RawAlert{Labels: map[string]string{"alertname": "HighCPU", "service": "api", "job": "web"}}
	fp1 := AlertFingerprint(a)
	fp2 := AlertFingerprint(a)
	if fp1 != fp2 {
		t.Fatal("expected deterministic fingerprint for identical input")
	}

	b := RawAlert{Labels: map[string]string{"alertname": "HighCPU", "service": "billing", "job": "web"}}
	if AlertFingerprint(a) == AlertFingerprint(b) {
		t.Fatal("expected different service labels to produce different fingerprints")
	}
}

func TestShouldPropagateRules(t *testing.T) {
	cases := []struct {
		name  string
		alert RawAlert
		want  bool
	}{
		{"critical with service propagates", RawAlert{Labels: map[string]string{"severity": "critical", "service": "api"}}, true},
		{"info severity does not propagate", RawAlert{Labels: map[string]string{"severity": "info", "service": "api"}}, false},
		{"localhost instance never propagates", RawAlert{Labels: map[string]string{"severity": "critical", "service": "api", "instance": "localhost:9100"}}, false},
		{"no service or job does not propagate", RawAlert{Labels: map[string]string{"severity": "critical"}}, false},
		{"job label qualifies", RawAlert{Labels: map[string]string{"severity": "warning", "job": "node-exporter"}}, true},
	}
	for _, c := range cases {
		if got := ShouldPropagate(c.alert); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}
