package service

import (
	"math"

	"sensor_monitor/internal/models"
)

// DefaultStableThreshold is the confidence (coefficient of variation, %)
// below which a series is considered stable.
const DefaultStableThreshold = 15.0

// Trend directions.
const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
	DirectionFlat       = "flat"
)

// DefaultAnomalyThreshold is the z-score above which a reading is anomalous.
const DefaultAnomalyThreshold = 2.0

// Correlation strength and relationship labels.
const (
	StrengthVeryWeak   = "very_weak"
	StrengthWeak       = "weak"
	StrengthModerate   = "moderate"
	StrengthStrong     = "strong"
	StrengthVeryStrong = "very_strong"

	RelationshipNone     = "none"
	RelationshipPositive = "positive"
	RelationshipNegative = "negative"
)

// Stability classes.
const (
	StabilityStable      = "stable"
	StabilityFluctuating = "fluctuating"
)

// TrendAnalyzer computes slope and confidence over a reading window.
//
// Slope is the least-squares regression of value against sample index, not
// wall-clock time, so irregular sampling does not skew it. Confidence is the
// coefficient of variation in percent: lower means more stable. Consumers
// classify it with Stability: confidence < StableThreshold is "stable",
// anything else "fluctuating". Analyze itself never classifies.
type TrendAnalyzer struct {
	StableThreshold float64
}

// NewTrendAnalyzer returns an analyzer; non-positive threshold falls back to
// DefaultStableThreshold.
func NewTrendAnalyzer(stableThreshold float64) *TrendAnalyzer {
	if stableThreshold <= 0 {
		stableThreshold = DefaultStableThreshold
	}
	return &TrendAnalyzer{StableThreshold: stableThreshold}
}

// Analyze returns the trend of readings in the given order.
// Fewer than two readings yield the zero result.
func (a *TrendAnalyzer) Analyze(readings []models.Reading) models.TrendResult {
	if len(readings) < 2 {
		return models.TrendResult{}
	}
	values := valuesOf(readings)
	return models.TrendResult{
		Slope:      slope(values),
		Confidence: coefficientOfVariation(values),
		RSquared:   rSquared(values),
	}
}

// Direction classifies a slope by sign; exactly zero is flat.
func (a *TrendAnalyzer) Direction(slope float64) string {
	switch {
	case slope > 0:
		return DirectionIncreasing
	case slope < 0:
		return DirectionDecreasing
	default:
		return DirectionFlat
	}
}

// Stability classifies a confidence value against StableThreshold.
func (a *TrendAnalyzer) Stability(confidence float64) string {
	if confidence < a.StableThreshold {
		return StabilityStable
	}
	return StabilityFluctuating
}

// Predict extrapolates the regression line steps positions past the last
// reading. It returns nil with fewer than two readings.
func (a *TrendAnalyzer) Predict(readings []models.Reading, steps int) []float64 {
	if len(readings) < 2 || steps <= 0 {
		return nil
	}
	values := valuesOf(readings)
	m := slope(values)
	n := float64(len(values))
	intercept := mean(values) - m*(n-1)/2

	out := make([]float64, steps)
	for i := range out {
		out[i] = m*(n+float64(i)) + intercept
	}
	return out
}

// Summarize returns count, min, max and mean of the readings.
func (a *TrendAnalyzer) Summarize(readings []models.Reading) models.Summary {
	if len(readings) == 0 {
		return models.Summary{}
	}
	s := models.Summary{
		Count: len(readings),
		Min:   readings[0].Value,
		Max:   readings[0].Value,
	}
	for _, r := range readings[1:] {
		s.Min = math.Min(s.Min, r.Value)
		s.Max = math.Max(s.Max, r.Value)
	}
	s.Mean = mean(valuesOf(readings))
	return s
}

// Anomalies returns the readings whose absolute z-score (population stddev)
// is above threshold, in window order. Fewer than three readings or a
// constant series yield none. Non-positive threshold uses
// DefaultAnomalyThreshold.
func (a *TrendAnalyzer) Anomalies(readings []models.Reading, threshold float64) []models.Anomaly {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	out := []models.Anomaly{}
	if len(readings) < 3 {
		return out
	}
	values := valuesOf(readings)
	m := mean(values)
	std := stddev(values, m)
	if std == 0 {
		return out
	}
	for _, r := range readings {
		z := math.Abs(r.Value-m) / std
		if z > threshold {
			out = append(out, models.Anomaly{
				SensorID:  r.SensorID,
				Value:     r.Value,
				Timestamp: r.Timestamp,
				Score:     z,
				Threshold: threshold,
			})
		}
	}
	return out
}

// Correlation pairs x and y by equal timestamp and returns their Pearson
// coefficient. Fewer than two pairs, or a constant side, give coefficient 0.
func (a *TrendAnalyzer) Correlation(x, y []models.Reading) models.Correlation {
	byTime := make(map[int64]float64, len(y))
	for _, r := range y {
		byTime[r.Timestamp.UnixNano()] = r.Value
	}
	var xs, ys []float64
	for _, r := range x {
		if v, ok := byTime[r.Timestamp.UnixNano()]; ok {
			xs = append(xs, r.Value)
			ys = append(ys, v)
		}
	}

	coef := 0.0
	if len(xs) >= 2 {
		coef = pearson(xs, ys)
	}
	return models.Correlation{
		Coefficient:  coef,
		Pairs:        len(xs),
		Strength:     correlationStrength(coef),
		Relationship: correlationRelationship(coef),
	}
}

func correlationStrength(c float64) string {
	switch abs := math.Abs(c); {
	case abs < 0.2:
		return StrengthVeryWeak
	case abs < 0.4:
		return StrengthWeak
	case abs < 0.6:
		return StrengthModerate
	case abs < 0.8:
		return StrengthStrong
	default:
		return StrengthVeryStrong
	}
}

func correlationRelationship(c float64) string {
	switch {
	case math.Abs(c) < 0.1:
		return RelationshipNone
	case c > 0:
		return RelationshipPositive
	default:
		return RelationshipNegative
	}
}

func valuesOf(readings []models.Reading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// slope fits y = m*x + b with x the 0-based index.
func slope(values []float64) float64 {
	n := len(values)
	xMean := float64(n-1) / 2
	yMean := mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// coefficientOfVariation is population stddev / |mean| * 100; 0 when mean is 0.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return stddev(values, m) / math.Abs(m) * 100
}

// stddev is the population standard deviation around m.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// rSquared is 1 - SSres/SStot of the index regression, clamped to [0, 1].
// A constant series has nothing to explain and scores 0.
func rSquared(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := slope(values)
	yMean := mean(values)
	intercept := yMean - m*float64(n-1)/2

	var ssRes, ssTot float64
	for i, y := range values {
		fit := m*float64(i) + intercept
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - yMean) * (y - yMean)
	}
	if ssTot == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-ssRes/ssTot))
}

func pearson(xs, ys []float64) float64 {
	mx, my := mean(xs), mean(ys)
	var num, sx, sy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		num += dx * dy
		sx += dx * dx
		sy += dy * dy
	}
	if sx == 0 || sy == 0 {
		return 0
	}
	return num / math.Sqrt(sx*sy)
}
