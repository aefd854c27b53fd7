package models

import "time"

// TrendResult is derived from a window snapshot; it is never stored.
type TrendResult struct {
	Slope      float64 `json:"slope"`
	Confidence float64 `json:"confidence"` // coefficient of variation, %
	RSquared   float64 `json:"r_squared"`  // regression fit quality, 0..1
}

// Anomaly is a reading whose z-score within its window exceeds the threshold.
type Anomaly struct {
	SensorID  int       `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Threshold float64   `json:"threshold"`
}

// Correlation is the Pearson coefficient between two sensors' readings
// paired by timestamp.
type Correlation struct {
	Coefficient  float64 `json:"coefficient"`
	Pairs        int     `json:"pairs"`
	Strength     string  `json:"strength"`     // very_weak | weak | moderate | strong | very_strong
	Relationship string  `json:"relationship"` // none | positive | negative
}

// Summary holds descriptive statistics over a window.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// SensorTrend is the analysis of one sensor's current window, as published
// on readingUpdated and served to displays.
type SensorTrend struct {
	SensorID   int         `json:"sensor_id"`
	Readings   []Reading   `json:"readings"`
	Trend      TrendResult `json:"trend"`
	Direction  string      `json:"direction"` // increasing | decreasing | flat
	Stability  string      `json:"stability"` // stable | fluctuating
	Prediction []float64   `json:"prediction,omitempty"`
	Summary    Summary     `json:"summary"`
	Anomalies  []Anomaly   `json:"anomalies"`
}
