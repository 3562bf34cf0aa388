package federation

import (
	"fmt"
	"sort"
)

// Aggregate combines samples for one metric name into a GlobalMetric using
// method, grounded on MetricAggregator.aggregate_global_metrics and its
// per-method confidence formulas.
func Aggregate(metricName string, samples []MetricSample, method AggregationMethod) (GlobalMetric, bool) {
	if len(samples) == 0 {
		return GlobalMetric{}, false
	}

	var value, confidence float64
	switch method {
	case AggSum:
		value, confidence = sumMetrics(samples)
	case AggMin:
		value, confidence = minMetrics(samples)
	case AggMax:
		value, confidence = maxMetrics(samples)
	case AggCount:
		value, confidence = countMetrics(samples)
	case AggPercentile95:
		value, confidence = percentile95Metrics(samples)
	case AggWeightedAverage:
		value, confidence = weightedAverageMetrics(samples)
	default:
		value, confidence = averageMetrics(samples)
	}

	nodes := make(map[string]bool)
	labelSets := make([]map[string]string, 0, len(samples))
	for _, s := range samples {
		nodes[s.NodeID] = true
		labelSets = append(labelSets, s.Labels)
	}

	return GlobalMetric{
		MetricName: metricName,
		Value:      value,
		Confidence: confidence,
		NodeCount:  len(nodes),
		Labels:     mergeLabels(labelSets),
	}, true
}

func sumMetrics(samples []MetricSample) (float64, float64) {
	var total float64
	for _, s := range samples {
		total += s.Value
	}
	return total, minFloat(1.0, float64(len(samples))/5.0)
}

func averageMetrics(samples []MetricSample) (float64, float64) {
	var total float64
	for _, s := range samples {
		total += s.Value
	}
	return total / float64(len(samples)), minFloat(1.0, float64(len(samples))/3.0)
}

func minMetrics(samples []MetricSample) (float64, float64) {
	min := samples[0].Value
	for _, s := range samples[1:] {
		if s.Value < min {
			min = s.Value
		}
	}
	return min, 1.0
}

func maxMetrics(samples []MetricSample) (float64, float64) {
	max := samples[0].Value
	for _, s := range samples[1:] {
		if s.Value > max {
			max = s.Value
		}
	}
	return max, 1.0
}

func countMetrics(samples []MetricSample) (float64, float64) {
	return float64(len(samples)), 1.0
}

func percentile95Metrics(samples []MetricSample) (float64, float64) {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	sort.Float64s(values)
	index := int(0.95 * float64(len(values)))
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index], minFloat(1.0, float64(len(values))/10.0)
}

func weightedAverageMetrics(samples []MetricSample) (float64, float64) {
	var totalWeight, weightedSum float64
	for _, s := range samples {
		weight := s.Weight
		if weight == 0 {
			weight = 1.0
		}
		totalWeight += weight
		weightedSum += s.Value * weight
	}
	if totalWeight == 0 {
		return 0, 0
	}
	return weightedSum / totalWeight, minFloat(1.0, float64(len(samples))/3.0)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// mergeLabels keeps only keys common to every sample's label set; a key
// whose value disagrees across sets becomes "multiple[N]" instead of being
// dropped, grounded on MetricAggregator.merge_labels.
func mergeLabels(labelSets []map[string]string) map[string]string {
	merged := make(map[string]string)
	if len(labelSets) == 0 {
		return merged
	}

	common := make(map[string]bool)
	for k := range labelSets[0] {
		common[k] = true
	}
	for _, labels := range labelSets[1:] {
		for k := range common {
			if _, ok := labels[k]; !ok {
				delete(common, k)
			}
		}
	}

	for k := range common {
		values := make(map[string]bool)
		for _, labels := range labelSets {
			values[labels[k]] = true
		}
		if len(values) == 1 {
			for v := range values {
				merged[k] = v
			}
		} else {
			merged[k] = fmt.Sprintf("multiple[%d]", len(values))
		}
	}
	return merged
}
