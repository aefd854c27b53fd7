package models

import "time"

// Alarm journal entry types.
const (
	AlarmEventChanged = "ALARM_CHANGED"
	AlarmEventError   = "ALARM_ERROR"
)

// AlarmEvent is a single alarm journal entry.
type AlarmEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // ALARM_CHANGED | ALARM_ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
