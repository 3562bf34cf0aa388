package platform

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/millsmillsymills/controlplane/internal/database"
)

// Point is a single sample written to the metric sink.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]float64
	RecordedAt  time.Time
}

// Sink is the control plane's metric store: every orchestrator writes
// measurements here and reads them back for threshold evaluation,
// aggregation and dashboards. Persistence uses a generic table plus
// JSON-encoded side fields rather than a purpose-built column per metric;
// a prometheus registry mirrors the most recent value of each series for
// live /metrics exposition.
type Sink struct {
	registry *prometheus.Registry
	gauges   map[string]*prometheus.GaugeVec
}

// NewSink creates a Sink backed by the shared database connection. The
// caller is expected to have already run migrations (database.Connect).
func NewSink() *Sink {
	return &Sink{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Registry exposes the prometheus registry for wiring into an HTTP handler.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Write persists a point and mirrors its numeric fields into prometheus
// gauges labeled by the point's tags.
func (s *Sink) Write(p Point) error {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}

	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	fieldsJSON, err := json.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = database.DB.Exec(
		`INSERT INTO ts_points (measurement, tags, fields, recorded_at) VALUES (?, ?, ?, ?)`,
		p.Measurement, string(tagsJSON), string(fieldsJSON), p.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("write point: %w", err)
	}

	s.mirrorToPrometheus(p)
	return nil
}

func (s *Sink) mirrorToPrometheus(p Point) {
	labelNames := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		labelNames = append(labelNames, k)
	}

	for field, value := range p.Fields {
		metricName := sanitizeMetricName(p.Measurement + "_" + field)
		gauge, ok := s.gauges[metricName]
		if !ok {
			gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: metricName,
				Help: fmt.Sprintf("control plane metric %s.%s", p.Measurement, field),
			}, labelNames)
			// Ignore AlreadyRegistered: a concurrent writer may have
			// registered the same series first.
			if err := s.registry.Register(gauge); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					gauge = are.ExistingCollector.(*prometheus.GaugeVec)
				}
			}
			s.gauges[metricName] = gauge
		}
		gauge.With(prometheus.Labels(p.Tags)).Set(value)
	}
}

func sanitizeMetricName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Recent returns points for a measurement recorded within the last window,
// most recent last.
func (s *Sink) Recent(measurement string, window time.Duration) ([]Point, error) {
	since := time.Now().Add(-window)

	rows, err := database.DB.Query(
		`SELECT tags, fields, recorded_at FROM ts_points
		 WHERE measurement = ? AND recorded_at >= ?
		 ORDER BY recorded_at ASC`,
		measurement, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent points: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var tagsJSON, fieldsJSON string
		var recordedAt time.Time
		if err := rows.Scan(&tagsJSON, &fieldsJSON, &recordedAt); err != nil {
			return nil, err
		}
		p := Point{Measurement: measurement, RecordedAt: recordedAt}
		json.Unmarshal([]byte(tagsJSON), &p.Tags)
		json.Unmarshal([]byte(fieldsJSON), &p.Fields)
		points = append(points, p)
	}
	return points, rows.Err()
}

// Stats computes the mean and sample standard deviation of field over the
// last window of a measurement. Used by the alert engine's dynamic
// threshold calculator. n is the number of samples seen.
func (s *Sink) Stats(measurement, field string, window time.Duration) (mean, stddev float64, n int, err error) {
	points, err := s.Recent(measurement, window)
	if err != nil {
		return 0, 0, 0, err
	}
	return statsOf(fieldValues(points, field))
}

// LastN computes the mean and sample standard deviation of field over the
// most recent n points of a measurement, regardless of how far back they
// were recorded. Used as the dynamic threshold calculator's fallback when
// its windowed lookup comes up short on history.
func (s *Sink) LastN(measurement, field string, n int) (mean, stddev float64, count int, err error) {
	rows, err := database.DB.Query(
		`SELECT fields FROM ts_points WHERE measurement = ? ORDER BY recorded_at DESC LIMIT ?`,
		measurement, n,
	)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query last points: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var fieldsJSON string
		if err := rows.Scan(&fieldsJSON); err != nil {
			return 0, 0, 0, err
		}
		var fields map[string]float64
		json.Unmarshal([]byte(fieldsJSON), &fields)
		if v, ok := fields[field]; ok {
			values = append(values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, 0, err
	}
	return statsOf(values)
}

func fieldValues(points []Point, field string) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := p.Fields[field]; ok {
			values = append(values, v)
		}
	}
	return values
}

// statsOf computes mean and sample standard deviation (Bessel's correction,
// dividing by n-1) of values, returning 0 stddev for fewer than two samples.
func statsOf(values []float64) (mean, stddev float64, n int, err error) {
	n = len(values)
	if n == 0 {
		return 0, 0, 0, nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, 0, n, nil
	}

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / float64(n-1))

	return mean, stddev, n, nil
}

// Prune deletes points older than retention.
func (s *Sink) Prune(retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	_, err := database.DB.Exec(`DELETE FROM ts_points WHERE recorded_at < ?`, cutoff)
	return err
}
