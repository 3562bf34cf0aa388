package federation

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// fingerprintLabels are the label keys considered when deduplicating a
// cross-site alert, grounded on generate_alert_fingerprint's key_labels.
var fingerprintLabels = []string{"alertname", "instance", "job", "service"}

// AlertFingerprint builds an MD5 hex digest of the alert's key labels
// joined as "key=value|key=value", matching generate_alert_fingerprint's
// format exactly (distinct from the alert engine's own fingerprint
// scheme, which hashes a JSON label blob rather than a pipe-joined
// string).
func AlertFingerprint(alert RawAlert) string {
	var parts []string
	for _, key := range fingerprintLabels {
		if v, ok := alert.Labels[key]; ok {
			parts = append(parts, key+"="+v)
		}
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ShouldPropagate reports whether an alert qualifies for cross-site
// propagation, grounded on should_propagate_alert: only critical/high/
// warning severities, never node-local alerts (instance starting with
// "localhost"), and only when the alert carries a service- or job-level
// label.
func ShouldPropagate(alert RawAlert) bool {
	severity := strings.ToLower(alert.Labels["severity"])
	switch severity {
	case "critical", "high", "warning":
	default:
		return false
	}

	if instance, ok := alert.Labels["instance"]; ok && strings.HasPrefix(instance, "localhost") {
		return false
	}

	_, hasService := alert.Labels["service"]
	_, hasJob := alert.Labels["job"]
	return hasService || hasJob
}
