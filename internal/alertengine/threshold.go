package alertengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/millsmillsymills/controlplane/internal/platform"
)

// minSamplesForDynamicThreshold is the minimum number of historical points
// within thresholdWindow before the fallback sampler below kicks in.
const minSamplesForDynamicThreshold = 10

// fallbackSampleCount is how many of the most recent points (regardless of
// age) the calculator falls back to when the windowed lookup comes up
// short.
const fallbackSampleCount = 50

// thresholdWindow is how far back the calculator looks for historical
// samples when computing mean/stddev.
const thresholdWindow = time.Hour

type cachedThreshold struct {
	value     float64
	expiresAt time.Time
}

// ThresholdCalculator computes a dynamic threshold as mean ± sensitivity·σ
// over a metric's recent history, clamped so it never loosens the rule's
// static threshold. Results are cached per (metric, operator, base,
// sensitivity) for a configurable TTL, grounded on
// DynamicThresholdCalculator.calculate_dynamic_threshold.
type ThresholdCalculator struct {
	sink *platform.Sink
	ttl  time.Duration

	mu    sync.Mutex
	cache map[string]cachedThreshold
}

// NewThresholdCalculator creates a calculator reading from sink, caching
// results for ttl.
func NewThresholdCalculator(sink *platform.Sink, ttl time.Duration) *ThresholdCalculator {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &ThresholdCalculator{
		sink:  sink,
		ttl:   ttl,
		cache: make(map[string]cachedThreshold),
	}
}

// Threshold returns the effective threshold for a rule: the static
// threshold when the rule isn't dynamic, or not enough history exists;
// otherwise mean+sensitivity·σ (upper-bound operators) or
// mean-sensitivity·σ (lower-bound operators), never looser than the
// static threshold.
func (c *ThresholdCalculator) Threshold(rule Rule) float64 {
	if !rule.Dynamic {
		return rule.StaticThreshold
	}

	key := fmt.Sprintf("%s:%s:%.6f:%.6f", rule.MetricName, rule.Operator, rule.StaticThreshold, rule.Sensitivity)

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		c.mu.Unlock()
		return cached.value
	}
	c.mu.Unlock()

	mean, stddev, n, err := c.sink.Stats(rule.MetricName, "value", thresholdWindow)
	if err != nil {
		return rule.StaticThreshold
	}
	if n < minSamplesForDynamicThreshold {
		mean, stddev, n, err = c.sink.LastN(rule.MetricName, "value", fallbackSampleCount)
		if err != nil {
			return rule.StaticThreshold
		}
	}
	if n == 0 {
		return rule.StaticThreshold
	}

	threshold := clampDynamicThreshold(rule.Operator, rule.StaticThreshold, mean, stddev, rule.Sensitivity)

	c.mu.Lock()
	c.cache[key] = cachedThreshold{value: threshold, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return threshold
}

// Invalidate clears the cached threshold for a metric, e.g. after a rule
// edit changes its sensitivity or operator.
func (c *ThresholdCalculator) Invalidate(metricName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := metricName + ":"
	for key := range c.cache {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.cache, key)
		}
	}
}

// clampDynamicThreshold computes mean±sensitivity·σ and clamps it so a
// dynamic threshold never loosens the rule's static one: an upper-bound
// operator's dynamic threshold can only rise above base, a lower-bound
// operator's can only fall below it.
func clampDynamicThreshold(operator Operator, base, mean, stddev, sensitivity float64) float64 {
	switch operator {
	case OpGT, OpGTE:
		return maxFloat(base, mean+sensitivity*stddev)
	case OpLT, OpLTE:
		return minFloat(base, mean-sensitivity*stddev)
	default:
		return base
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// equalityTolerance is the float comparison slop used for the "==" and
// "!=" operators. Kept as a named constant per the source's check_threshold:
// its 1e-3 value is metric-scale-dependent (fine for a 0/1 status metric,
// loose for a byte count) and is inherited rather than re-derived per rule.
const equalityTolerance = 1e-3

// Breached reports whether value breaches threshold under operator.
func Breached(value float64, operator Operator, threshold float64) bool {
	switch operator {
	case OpGT:
		return value > threshold
	case OpGTE:
		return value >= threshold
	case OpLT:
		return value < threshold
	case OpLTE:
		return value <= threshold
	case OpEQ:
		return absFloat(value-threshold) < equalityTolerance
	case OpNEQ:
		return absFloat(value-threshold) >= equalityTolerance
	default:
		return false
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
