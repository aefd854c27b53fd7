package models

import (
	"fmt"
	"time"
)

// Layouts of the user-selected query fields.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// QueryDescriptor is a validated (date, start, end, sensor) selection.
// Build it with service.NewQuery; replace it instead of mutating it.
type QueryDescriptor struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
	SensorID  *int   `json:"sensor_id"`  // nil means all sensors
}

// AllSensors reports whether the query spans every sensor.
func (q QueryDescriptor) AllSensors() bool {
	return q.SensorID == nil
}

// Sensors returns the sensor ids the query covers.
func (q QueryDescriptor) Sensors() []int {
	if q.SensorID == nil {
		return SensorIDs()
	}
	return []int{*q.SensorID}
}

// Bounds resolves the query to the [from, to) wall-clock range in loc.
func (q QueryDescriptor) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	from, err := time.ParseInLocation(DateLayout+" "+ClockLayout, q.Date+" "+q.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start of %s: %w", q.Date, err)
	}
	to, err := time.ParseInLocation(DateLayout+" "+ClockLayout, q.Date+" "+q.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end of %s: %w", q.Date, err)
	}
	return from, to, nil
}
