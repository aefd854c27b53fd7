package models

import "time"

// AlarmState is the latest outcome of the alarm poll loop.
// The zero value is the initial state: no alarm, no error, never checked.
type AlarmState struct {
	IsAlarm       bool      `json:"is_alarm"`
	Error         string    `json:"error,omitempty"` // empty means no error
	LastCheckedAt time.Time `json:"last_checked_at"`
}
