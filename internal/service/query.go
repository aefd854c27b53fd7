package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"sensor_monitor/internal/models"
)

var (
	ErrInvalidDate   = errors.New("invalid date: use YYYY-MM-DD")
	ErrInvalidTime   = errors.New("invalid time: use HH:MM")
	ErrInvalidRange  = errors.New("invalid time range: end time must be after start time")
	ErrInvalidSensor = errors.New("invalid sensor: must be 1, 2 or all")
)

// NewQuery validates a raw date/start/end/sensor selection.
// sensorID "" or "all" selects every sensor.
func NewQuery(date, startTime, endTime, sensorID string) (models.QueryDescriptor, error) {
	date = strings.TrimSpace(date)
	startTime = strings.TrimSpace(startTime)
	endTime = strings.TrimSpace(endTime)

	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.QueryDescriptor{}, ErrInvalidDate
	}
	start, err := time.Parse(models.ClockLayout, startTime)
	if err != nil {
		return models.QueryDescriptor{}, ErrInvalidTime
	}
	end, err := time.Parse(models.ClockLayout, endTime)
	if err != nil {
		return models.QueryDescriptor{}, ErrInvalidTime
	}
	if !end.After(start) {
		return models.QueryDescriptor{}, ErrInvalidRange
	}

	sensor, err := parseSensorID(sensorID)
	if err != nil {
		return models.QueryDescriptor{}, err
	}

	return models.QueryDescriptor{
		Date:      date,
		StartTime: start.Format(models.ClockLayout),
		EndTime:   end.Format(models.ClockLayout),
		SensorID:  sensor,
	}, nil
}

func parseSensorID(s string) (*int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return nil, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil || !models.ValidSensorID(id) {
		return nil, ErrInvalidSensor
	}
	return &id, nil
}
