package federation

import (
	"context"
	"net/http"
	"time"
)

// HealthMonitor probes each federation node's health endpoint, grounded on
// NodeHealthMonitor.check_node_health.
type HealthMonitor struct {
	client *http.Client
}

func NewHealthMonitor(timeout time.Duration) *HealthMonitor {
	return &HealthMonitor{client: &http.Client{Timeout: timeout}}
}

// Check probes node's /health endpoint and returns its observed status.
func (h *HealthMonitor) Check(ctx context.Context, node Node) NodeStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.Endpoint+"/health", nil)
	if err != nil {
		return NodeOffline
	}
	if node.BearerKey != "" {
		req.Header.Set("Authorization", "Bearer "+node.BearerKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return NodeOffline
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return NodeOnline
	case resp.StatusCode >= 500:
		return NodeDegraded
	default:
		return NodeUnknown
	}
}
