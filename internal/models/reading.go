package models

import "time"

// Sensor ids known to the dashboard.
const (
	SensorTemperature = 1
	SensorHumidity    = 2
)

// Reading is a single time-stamped measurement of one sensor.
type Reading struct {
	SensorID  int       `json:"sensor_id"` // 1 | 2
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidSensorID reports whether id names one of the known sensors.
func ValidSensorID(id int) bool {
	return id == SensorTemperature || id == SensorHumidity
}

// SensorIDs lists the known sensors in display order.
func SensorIDs() []int {
	return []int{SensorTemperature, SensorHumidity}
}
