package database

import (
	"database/sql"
	"time"

	"github.com/millsmillsymills/controlplane/internal/crypto"
)

// FederationNodeRow is the persisted row shape for a federated node
// (federation_nodes). BearerKey holds the node's auth bearer token,
// encrypted at rest via internal/crypto; Upsert/All handle the
// encrypt/decrypt transparently so callers only ever see plaintext.
type FederationNodeRow struct {
	ID        string
	Name      string
	Type      string
	Endpoint  string
	Status    string
	BearerKey string
	LastSeen  *time.Time
	CreatedAt time.Time
}

// FederationNodeRepository persists known federation nodes and their last
// observed health.
type FederationNodeRepository struct{}

func NewFederationNodeRepository() *FederationNodeRepository { return &FederationNodeRepository{} }

func (r *FederationNodeRepository) Upsert(n FederationNodeRow) error {
	encKey, err := crypto.Encrypt(n.BearerKey)
	if err != nil {
		return err
	}
	_, err = DB.Exec(`INSERT INTO federation_nodes (id, name, type, endpoint, status, bearer_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, type=excluded.type, endpoint=excluded.endpoint,
			bearer_key=excluded.bearer_key`,
		n.ID, n.Name, n.Type, n.Endpoint, n.Status, encKey)
	return err
}

func (r *FederationNodeRepository) UpdateStatus(id, status string, lastSeen time.Time) error {
	_, err := DB.Exec(`UPDATE federation_nodes SET status = ?, last_seen = ? WHERE id = ?`, status, lastSeen, id)
	return err
}

func (r *FederationNodeRepository) All() ([]FederationNodeRow, error) {
	rows, err := DB.Query(`SELECT id, name, type, endpoint, status, bearer_key, last_seen, created_at FROM federation_nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FederationNodeRow
	for rows.Next() {
		var n FederationNodeRow
		var lastSeen sql.NullTime
		var encKey sql.NullString
		if err := rows.Scan(&n.ID, &n.Name, &n.Type, &n.Endpoint, &n.Status, &encKey, &lastSeen, &n.CreatedAt); err != nil {
			return nil, err
		}
		if encKey.Valid {
			key, err := crypto.Decrypt(encKey.String)
			if err != nil {
				return nil, err
			}
			n.BearerKey = key
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			n.LastSeen = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GlobalMetricRow is one aggregated cross-site metric
// (federation_global_metrics).
type GlobalMetricRow struct {
	MetricName string
	Value      float64
	Confidence float64
	NodeCount  int
	LabelsJSON string
	RecordedAt time.Time
}

// GlobalMetricRepository persists cross-site aggregated metrics.
type GlobalMetricRepository struct{}

func NewGlobalMetricRepository() *GlobalMetricRepository { return &GlobalMetricRepository{} }

func (r *GlobalMetricRepository) Create(m GlobalMetricRow) error {
	_, err := DB.Exec(`INSERT INTO federation_global_metrics
		(metric_name, value, confidence, node_count, labels, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.MetricName, m.Value, m.Confidence, m.NodeCount, m.LabelsJSON, m.RecordedAt)
	return err
}

func (r *GlobalMetricRepository) Recent(metricName string, limit int) ([]GlobalMetricRow, error) {
	rows, err := DB.Query(`SELECT metric_name, value, confidence, node_count, labels, recorded_at
		FROM federation_global_metrics WHERE metric_name = ? ORDER BY recorded_at DESC LIMIT ?`, metricName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GlobalMetricRow
	for rows.Next() {
		var m GlobalMetricRow
		if err := rows.Scan(&m.MetricName, &m.Value, &m.Confidence, &m.NodeCount, &m.LabelsJSON, &m.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CrossSiteAlertRow is a deduplicated cross-site alert
// (federation_cross_site_alerts).
type CrossSiteAlertRow struct {
	Fingerprint string
	SourceNode  string
	Severity    string
	LabelsJSON  string
	Propagated  bool
	SeenAt      time.Time
}

// CrossSiteAlertRepository persists cross-site alert dedup state.
type CrossSiteAlertRepository struct{}

func NewCrossSiteAlertRepository() *CrossSiteAlertRepository { return &CrossSiteAlertRepository{} }

// Seen reports whether this fingerprint has already been recorded.
func (r *CrossSiteAlertRepository) Seen(fingerprint string) (bool, error) {
	var n int
	err := DB.QueryRow(`SELECT COUNT(1) FROM federation_cross_site_alerts WHERE fingerprint = ?`, fingerprint).Scan(&n)
	return n > 0, err
}

func (r *CrossSiteAlertRepository) Create(a CrossSiteAlertRow) error {
	_, err := DB.Exec(`INSERT OR IGNORE INTO federation_cross_site_alerts
		(fingerprint, source_node, severity, labels, propagated, seen_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Fingerprint, a.SourceNode, a.Severity, a.LabelsJSON, boolToInt(a.Propagated), a.SeenAt)
	return err
}

func (r *CrossSiteAlertRepository) MarkPropagated(fingerprint string) error {
	_, err := DB.Exec(`UPDATE federation_cross_site_alerts SET propagated = 1 WHERE fingerprint = ?`, fingerprint)
	return err
}
