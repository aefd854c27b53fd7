package service

import (
	"context"
	"fmt"

	"sensor_monitor/internal/models"
)

// Default per-sensor alarm limits.
const (
	DefaultTemperatureLimit = 30.0 // °C
	DefaultHumidityLimit    = 60.0 // %
)

// DefaultLimits returns the default limit for each sensor.
func DefaultLimits() map[int]float64 {
	return map[int]float64{
		models.SensorTemperature: DefaultTemperatureLimit,
		models.SensorHumidity:    DefaultHumidityLimit,
	}
}

// ThresholdChecker raises the alarm when the latest reading of any sensor
// is above that sensor's limit. Sensors without a limit never alarm.
type ThresholdChecker struct {
	source LatestFetcher
	limits map[int]float64
}

// NewThresholdChecker returns a checker over source. A nil limits map uses
// DefaultLimits.
func NewThresholdChecker(source LatestFetcher, limits map[int]float64) *ThresholdChecker {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &ThresholdChecker{source: source, limits: limits}
}

// CheckAlarm implements AlarmChecker.
func (c *ThresholdChecker) CheckAlarm(ctx context.Context) (bool, error) {
	readings, err := c.source.FetchLatest(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch latest readings: %w", err)
	}
	for _, r := range readings {
		limit, ok := c.limits[r.SensorID]
		if ok && r.Value > limit {
			return true, nil
		}
	}
	return false, nil
}
