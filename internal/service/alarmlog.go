package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/models"
	"sensor_monitor/internal/repository"

	"github.com/google/uuid"
)

// journalTimeout bounds a single journal write triggered by an event.
const journalTimeout = 5 * time.Second

// AlarmLogService journals alarm events and serves the journal.
type AlarmLogService struct {
	alarmRepo repository.AlarmRepo
	log       *logger.Logger
	now       func() time.Time
}

// NewAlarmLogService returns a journal over alarmRepo. log may be nil.
func NewAlarmLogService(alarmRepo repository.AlarmRepo, log *logger.Logger) *AlarmLogService {
	if log == nil {
		log = logger.Nop()
	}
	return &AlarmLogService{alarmRepo: alarmRepo, log: log, now: time.Now}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errUnexpectedArgs   = errors.New("unexpected alarm event payload")
)

// Attach subscribes the journal to alarm events on ch. The returned
// subscriptions detach it again.
func (s *AlarmLogService) Attach(ch *events.Channel) []*events.Subscription {
	return []*events.Subscription{
		ch.Subscribe(events.AlarmChanged, s.onAlarmEvent(models.AlarmEventChanged)),
		ch.Subscribe(events.AlarmError, s.onAlarmEvent(models.AlarmEventError)),
	}
}

func (s *AlarmLogService) onAlarmEvent(typ string) events.Callback {
	return func(args ...any) error {
		if len(args) == 0 {
			return errUnexpectedArgs
		}
		st, ok := args[0].(models.AlarmState)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedArgs, args[0])
		}
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		return s.Record(ctx, typ, st)
	}
}

// Record appends a journal entry describing st.
func (s *AlarmLogService) Record(ctx context.Context, typ string, st models.AlarmState) error {
	occurred := st.LastCheckedAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	ev := models.AlarmEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  occurred.UTC(),
		Type:        typ,
		Description: describeAlarm(typ, st),
	}
	meta := map[string]any{"is_alarm": st.IsAlarm}
	if st.Error != "" {
		meta["error"] = st.Error
	}
	ev.Metadata = meta
	if err := s.alarmRepo.Append(ctx, ev); err != nil {
		return fmt.Errorf("append alarm event: %w", err)
	}
	return nil
}

func describeAlarm(typ string, st models.AlarmState) string {
	switch {
	case typ == models.AlarmEventError:
		return st.Error
	case st.IsAlarm:
		return "Alarm raised"
	default:
		return "Alarm cleared"
	}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}
	return from, to, normalizeEventType(f.Type), nil
}

// List returns journal entries matching f, oldest first.
func (s *AlarmLogService) List(ctx context.Context, f LogFilter) ([]models.AlarmEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.alarmRepo.List(ctx, from, to, typ)
}
