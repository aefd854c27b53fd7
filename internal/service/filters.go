package service

import "time"

// LogFilter narrows the alarm journal by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "ALARM_CHANGED", "ALARM_ERROR"
}
