package federation

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

// KnownMetricNames lists every metric name this federation knows how to
// aggregate, for API handlers that need to export local samples under the
// same names sibling nodes request.
func KnownMetricNames() []string {
	names := make([]string, 0, len(defaultAggregationRules))
	for name := range defaultAggregationRules {
		names = append(names, name)
	}
	return names
}

// defaultAggregationRules mirrors load_default_configuration's
// aggregation_rules map.
var defaultAggregationRules = map[string]AggregationMethod{
	"cpu_usage_percent":    AggWeightedAverage,
	"memory_usage_percent": AggWeightedAverage,
	"disk_usage_percent":   AggAverage,
	"request_count":        AggSum,
	"error_count":          AggSum,
	"response_time_ms":     AggPercentile95,
	"active_connections":   AggSum,
	"service_up":           AggMin,
}

// Orchestrator is the Federation Orchestrator.
type Orchestrator struct {
	nodeRepo   *database.FederationNodeRepository
	metricRepo *database.GlobalMetricRepository
	alertRepo  *database.CrossSiteAlertRepository
	notifier   *platform.Notifier
	clock      *platform.Clock

	health *HealthMonitor
	client *nodeClient

	localNodeID string

	mu    sync.Mutex
	nodes map[string]Node
}

// New builds a federation orchestrator for localNodeID against the given
// peer nodes.
func New(notifier *platform.Notifier, clock *platform.Clock, localNodeID string, nodes []Node) *Orchestrator {
	o := &Orchestrator{
		nodeRepo:    database.NewFederationNodeRepository(),
		metricRepo:  database.NewGlobalMetricRepository(),
		alertRepo:   database.NewCrossSiteAlertRepository(),
		notifier:    notifier,
		clock:       clock,
		health:      NewHealthMonitor(10 * time.Second),
		client:      newNodeClient(15 * time.Second),
		localNodeID: localNodeID,
		nodes:       make(map[string]Node),
	}
	for _, n := range nodes {
		n.Status = NodeUnknown
		o.nodes[n.ID] = n
		_ = o.nodeRepo.Upsert(database.FederationNodeRow{
			ID: n.ID, Name: n.Name, Type: string(n.Type), Endpoint: n.Endpoint,
			Status: string(NodeUnknown), BearerKey: n.BearerKey,
		})
	}
	return o
}

// Start schedules the three federation tasks on the shared clock:
// global metric collection, node health monitoring, and cross-site alert
// propagation, mirroring start_federation's three concurrent tasks.
func (o *Orchestrator) Start(metricInterval, healthInterval, alertInterval time.Duration) error {
	if err := o.clock.Every("federation-metrics", metricInterval.String(), func() {
		o.CollectGlobalMetrics(context.Background())
	}); err != nil {
		return err
	}
	if err := o.clock.Every("federation-health", healthInterval.String(), func() {
		o.MonitorNodeHealth(context.Background())
	}); err != nil {
		return err
	}
	return o.clock.Every("federation-alerts", alertInterval.String(), func() {
		o.PropagateCrossSiteAlerts(context.Background())
	})
}

// MonitorNodeHealth probes every peer node and persists its status,
// grounded on monitor_node_health / store_node_health.
func (o *Orchestrator) MonitorNodeHealth(ctx context.Context) {
	o.mu.Lock()
	nodes := make([]Node, 0, len(o.nodes))
	for _, n := range o.nodes {
		nodes = append(nodes, n)
	}
	o.mu.Unlock()

	for _, n := range nodes {
		status := o.health.Check(ctx, n)
		now := time.Now()

		o.mu.Lock()
		entry := o.nodes[n.ID]
		entry.Status = status
		entry.LastSeen = now
		o.nodes[n.ID] = entry
		o.mu.Unlock()

		if err := o.nodeRepo.UpdateStatus(n.ID, string(status), now); err != nil {
			log.Printf("[Federation] failed to persist health for node %s: %v", n.ID, err)
		}
		if status != NodeOnline {
			log.Printf("[Federation] node %s is %s", n.ID, status)
		}
	}
}

// CollectGlobalMetrics pulls metrics from every peer node, aggregates each
// configured metric with its rule, and persists the result, grounded on
// collect_global_metrics / aggregate_global_metrics.
func (o *Orchestrator) CollectGlobalMetrics(ctx context.Context) {
	samplesByMetric := make(map[string][]MetricSample)

	o.mu.Lock()
	nodes := make([]Node, 0, len(o.nodes))
	for _, n := range o.nodes {
		nodes = append(nodes, n)
	}
	o.mu.Unlock()

	for _, n := range nodes {
		samples, err := o.client.fetchMetrics(ctx, n)
		if err != nil {
			log.Printf("[Federation] failed to collect metrics from %s: %v", n.ID, err)
			continue
		}
		for _, s := range samples {
			samplesByMetric[s.Name] = append(samplesByMetric[s.Name], s)
		}
	}

	for metricName, method := range defaultAggregationRules {
		samples, ok := samplesByMetric[metricName]
		if !ok || len(samples) == 0 {
			continue
		}
		global, ok := Aggregate(metricName, samples, method)
		if !ok {
			continue
		}
		global.RecordedAt = time.Now()

		labelsJSON, _ := json.Marshal(global.Labels)
		if err := o.metricRepo.Create(database.GlobalMetricRow{
			MetricName: global.MetricName, Value: global.Value, Confidence: global.Confidence,
			NodeCount: global.NodeCount, LabelsJSON: string(labelsJSON), RecordedAt: global.RecordedAt,
		}); err != nil {
			log.Printf("[Federation] failed to persist global metric %s: %v", metricName, err)
		}
	}
}

// PropagateCrossSiteAlerts fetches each peer's alerts, deduplicates them by
// fingerprint, and for anything new that qualifies, pushes it to every
// other node over HTTP, grounded on propagate_cross_site_alerts /
// process_cross_site_alert / propagate_alert_to_nodes — the actual push is
// new: the original only logged what it "would" send (see DESIGN.md).
func (o *Orchestrator) PropagateCrossSiteAlerts(ctx context.Context) {
	o.mu.Lock()
	nodes := make([]Node, 0, len(o.nodes))
	for _, n := range o.nodes {
		nodes = append(nodes, n)
	}
	o.mu.Unlock()

	for _, source := range nodes {
		alerts, err := o.client.fetchAlerts(ctx, source)
		if err != nil {
			log.Printf("[Federation] failed to fetch alerts from %s: %v", source.ID, err)
			continue
		}

		for _, raw := range alerts {
			fingerprint := AlertFingerprint(raw)
			seen, err := o.alertRepo.Seen(fingerprint)
			if err != nil {
				log.Printf("[Federation] alert dedup lookup failed: %v", err)
				continue
			}
			if seen {
				continue
			}
			if !ShouldPropagate(raw) {
				continue
			}

			labelsJSON, _ := json.Marshal(raw.Labels)
			alert := CrossSiteAlert{
				Fingerprint: fingerprint,
				SourceNode:  source.ID,
				Severity:    raw.Labels["severity"],
				Labels:      raw.Labels,
				SeenAt:      time.Now(),
			}
			if err := o.alertRepo.Create(database.CrossSiteAlertRow{
				Fingerprint: fingerprint, SourceNode: source.ID, Severity: alert.Severity,
				LabelsJSON: string(labelsJSON), SeenAt: alert.SeenAt,
			}); err != nil {
				log.Printf("[Federation] failed to record cross-site alert %s: %v", fingerprint, err)
				continue
			}

			o.pushToOtherNodes(ctx, nodes, source.ID, alert)
		}
	}
}

func (o *Orchestrator) pushToOtherNodes(ctx context.Context, nodes []Node, sourceID string, alert CrossSiteAlert) {
	delivered := 0
	for _, target := range nodes {
		if target.ID == sourceID || target.ID == o.localNodeID {
			continue
		}
		if err := o.client.pushAlert(ctx, target, alert); err != nil {
			log.Printf("[Federation] failed to propagate alert %s to %s: %v", alert.Fingerprint, target.ID, err)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		if err := o.alertRepo.MarkPropagated(alert.Fingerprint); err != nil {
			log.Printf("[Federation] failed to mark alert %s propagated: %v", alert.Fingerprint, err)
		}
		o.notifier.Dispatch(platform.Event{
			Source:   "federation",
			Severity: platform.Severity(alert.Severity),
			Title:    "Cross-Site Alert",
			Message:  "propagated alert from " + alert.SourceNode + " to " + itoa(delivered) + " node(s)",
			Labels:   alert.Labels,
			Time:     time.Now(),
		}, nil)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// ReceiveAlert records a cross-site alert pushed by a peer node's
// pushAlert and notifies the local dashboard/channels, the receiving side
// of PropagateCrossSiteAlerts's outbound push.
func (o *Orchestrator) ReceiveAlert(alert CrossSiteAlert) error {
	seen, err := o.alertRepo.Seen(alert.Fingerprint)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}
	if alert.SeenAt.IsZero() {
		alert.SeenAt = time.Now()
	}

	labelsJSON, _ := json.Marshal(alert.Labels)
	if err := o.alertRepo.Create(database.CrossSiteAlertRow{
		Fingerprint: alert.Fingerprint, SourceNode: alert.SourceNode, Severity: alert.Severity,
		LabelsJSON: string(labelsJSON), SeenAt: alert.SeenAt,
	}); err != nil {
		return err
	}

	o.notifier.Dispatch(platform.Event{
		Source:   "federation",
		Severity: platform.Severity(alert.Severity),
		Title:    "Cross-Site Alert Received",
		Message:  "received alert " + alert.Fingerprint + " propagated from node " + alert.SourceNode,
		Labels:   alert.Labels,
		Time:     time.Now(),
	}, nil)
	return nil
}

// Nodes returns a snapshot of every known federation node.
func (o *Orchestrator) Nodes() []Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Node, 0, len(o.nodes))
	for _, n := range o.nodes {
		out = append(out, n)
	}
	return out
}

// RecentGlobalMetrics returns the most recent aggregated values for a
// metric.
func (o *Orchestrator) RecentGlobalMetrics(metricName string, limit int) ([]GlobalMetric, error) {
	rows, err := o.metricRepo.Recent(metricName, limit)
	if err != nil {
		return nil, err
	}
	out := make([]GlobalMetric, 0, len(rows))
	for _, row := range rows {
		var labels map[string]string
		_ = json.Unmarshal([]byte(row.LabelsJSON), &labels)
		out = append(out, GlobalMetric{
			MetricName: row.MetricName, Value: row.Value, Confidence: row.Confidence,
			NodeCount: row.NodeCount, Labels: labels, RecordedAt: row.RecordedAt,
		})
	}
	return out, nil
}
