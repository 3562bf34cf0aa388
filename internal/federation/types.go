// Package federation implements the Federation Orchestrator: it
// probes the health of sibling control-plane nodes, aggregates metrics
// across all of them into confidence-scored global metrics, and
// deduplicates and propagates cross-site alerts. Grounded on
// global_monitoring_federation.py.
package federation

import "time"

// NodeType mirrors FederationNodeType.
type NodeType string

const (
	NodeTypePrimary   NodeType = "primary"
	NodeTypeSecondary NodeType = "secondary"
	NodeTypeEdge      NodeType = "edge"
)

// NodeStatus mirrors NodeStatus.
type NodeStatus string

const (
	NodeOnline  NodeStatus = "online"
	NodeOffline NodeStatus = "offline"
	NodeDegraded NodeStatus = "degraded"
	NodeUnknown NodeStatus = "unknown"
)

// Node is one federated control-plane peer.
type Node struct {
	ID        string
	Name      string
	Type      NodeType
	Endpoint  string
	BearerKey string
	Status    NodeStatus
	LastSeen  time.Time
}

// MetricSample is one metric value collected from a peer node's metrics
// endpoint, grounded on the dict shape built in collect_node_metrics /
// parse_prometheus_metrics.
type MetricSample struct {
	Name   string
	Value  float64
	Weight float64
	Labels map[string]string
	NodeID string
}

// AggregationMethod selects how samples from multiple nodes combine into
// one global value, grounded on MetricAggregator.aggregation_methods.
type AggregationMethod string

const (
	AggSum             AggregationMethod = "sum"
	AggAverage         AggregationMethod = "average"
	AggMin             AggregationMethod = "min"
	AggMax             AggregationMethod = "max"
	AggCount           AggregationMethod = "count"
	AggPercentile95    AggregationMethod = "percentile_95"
	AggWeightedAverage AggregationMethod = "weighted_average"
)

// GlobalMetric is one aggregated cross-site measurement.
type GlobalMetric struct {
	MetricName string
	Value      float64
	Confidence float64
	NodeCount  int
	Labels     map[string]string
	RecordedAt time.Time
}

// RawAlert is an alert fetched from a peer node's alert feed, carrying the
// label set the fingerprint and propagation rules inspect.
type RawAlert struct {
	Name   string
	Labels map[string]string
}

// CrossSiteAlert is a deduplicated alert tracked across the federation.
type CrossSiteAlert struct {
	Fingerprint string
	SourceNode  string
	Severity    string
	Labels      map[string]string
	Propagated  bool
	SeenAt      time.Time
}
