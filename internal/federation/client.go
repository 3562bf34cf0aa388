package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// nodeClient fetches metrics and alerts from a sibling control-plane node's
// own API, grounded on collect_node_metrics and fetch_node_alerts — adapted
// to this control plane's own JSON API rather than scraping a raw
// Prometheus exposition format, since every federation peer is another
// instance of this same service.
type nodeClient struct {
	http *http.Client
}

func newNodeClient(timeout time.Duration) *nodeClient {
	return &nodeClient{http: &http.Client{Timeout: timeout}}
}

type metricWire struct {
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Weight float64           `json:"weight"`
	Labels map[string]string `json:"labels"`
}

type alertWire struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
}

func (c *nodeClient) fetchMetrics(ctx context.Context, node Node) ([]MetricSample, error) {
	var wire []metricWire
	if err := c.getJSON(ctx, node, "/api/v1/federation/metrics", &wire); err != nil {
		return nil, err
	}
	out := make([]MetricSample, 0, len(wire))
	for _, m := range wire {
		out = append(out, MetricSample{Name: m.Name, Value: m.Value, Weight: m.Weight, Labels: m.Labels, NodeID: node.ID})
	}
	return out, nil
}

func (c *nodeClient) fetchAlerts(ctx context.Context, node Node) ([]RawAlert, error) {
	var wire []alertWire
	if err := c.getJSON(ctx, node, "/api/v1/federation/alerts", &wire); err != nil {
		return nil, err
	}
	out := make([]RawAlert, 0, len(wire))
	for _, a := range wire {
		out = append(out, RawAlert{Name: a.Name, Labels: a.Labels})
	}
	return out, nil
}

// pushAlert propagates a confirmed cross-site alert to node's ingest
// endpoint. This performs the real outbound HTTP request
// propagate_alert_to_nodes only logged and never sent.
func (c *nodeClient) pushAlert(ctx context.Context, node Node, alert CrossSiteAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node.Endpoint+"/api/v1/federation/alerts/incoming", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if node.BearerKey != "" {
		req.Header.Set("Authorization", "Bearer "+node.BearerKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("federation: node %s rejected alert push: HTTP %d", node.ID, resp.StatusCode)
	}
	return nil
}

func (c *nodeClient) getJSON(ctx context.Context, node Node, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.Endpoint+path, nil)
	if err != nil {
		return err
	}
	if node.BearerKey != "" {
		req.Header.Set("Authorization", "Bearer "+node.BearerKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("federation: requesting %s from node %s: %w", path, node.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("federation: node %s returned HTTP %d for %s", node.ID, resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
