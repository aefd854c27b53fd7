package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/models"
)

// fakeAlarmRepo satisfies repository.AlarmRepo.
type fakeAlarmRepo struct {
	mu sync.Mutex

	gotFrom  time.Time
	gotTo    time.Time
	gotType  string
	appended []models.AlarmEvent

	events    []models.AlarmEvent
	err       error
	appendErr error

	calls int
}

func (f *fakeAlarmRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.AlarmEvent, error) {
	f.calls++
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.err
}

func (f *fakeAlarmRepo) Append(ctx context.Context, e models.AlarmEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, e)
	return nil
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(time.FixedZone("UTC+3", 3*3600), 2025, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

func Test_normalizeEventType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in  string
		exp string
	}{
		{in: "", exp: ""},
		{in: "  alarm_error ", exp: models.AlarmEventError},
		{in: "Alarm_Changed", exp: models.AlarmEventChanged},
	}
	for _, c := range cases {
		if got := normalizeEventType(c.in); got != c.exp {
			t.Errorf("normalizeEventType(%q) = %q; want %q", c.in, got, c.exp)
		}
	}
}

func TestAlarmLogService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	frepo := &fakeAlarmRepo{events: []models.AlarmEvent{{EventID: "1"}}}
	svc := NewAlarmLogService(frepo, nil)

	fromLocal := mustTimeIn(time.FixedZone("UTC+5", 5*3600), 2025, time.October, 1, 10, 0, 0)
	toLocal := mustTimeIn(time.FixedZone("UTC-2", -2*3600), 2025, time.October, 1, 12, 30, 0)

	out, err := svc.List(context.Background(), LogFilter{From: fromLocal, To: toLocal, Type: " alarm_error "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "1" {
		t.Fatalf("unexpected events: %+v", out)
	}

	wantFrom := time.Date(2025, time.October, 1, 5, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, time.October, 1, 14, 30, 0, 0, time.UTC)
	if !frepo.gotFrom.Equal(wantFrom) || !frepo.gotTo.Equal(wantTo) {
		t.Fatalf("repo got from=%v to=%v; want %v %v", frepo.gotFrom, frepo.gotTo, wantFrom, wantTo)
	}
	if frepo.gotType != models.AlarmEventError {
		t.Fatalf("repo gotType=%q", frepo.gotType)
	}
}

func TestAlarmLogService_List_ValidationError(t *testing.T) {
	t.Parallel()

	frepo := &fakeAlarmRepo{}
	svc := NewAlarmLogService(frepo, nil)

	_, err := svc.List(context.Background(), LogFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
	if frepo.calls != 0 {
		t.Fatalf("repo should not be called on validation error, calls=%d", frepo.calls)
	}
}

func TestAlarmLogService_List_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	frepo := &fakeAlarmRepo{err: errors.New("db down")}
	svc := NewAlarmLogService(frepo, nil)

	if _, err := svc.List(context.Background(), LogFilter{}); !errors.Is(err, frepo.err) {
		t.Fatalf("expected repo error to propagate; got %v", err)
	}
}

func TestAlarmLogService_Record(t *testing.T) {
	t.Parallel()

	checked := mustTimeIn(time.FixedZone("UTC+1", 3600), 2025, time.May, 5, 9, 0, 0)

	tests := []struct {
		name     string
		typ      string
		state    models.AlarmState
		wantDesc string
	}{
		{name: "raised", typ: models.AlarmEventChanged, state: models.AlarmState{IsAlarm: true, LastCheckedAt: checked}, wantDesc: "Alarm raised"},
		{name: "cleared", typ: models.AlarmEventChanged, state: models.AlarmState{LastCheckedAt: checked}, wantDesc: "Alarm cleared"},
		{name: "error", typ: models.AlarmEventError, state: models.AlarmState{Error: "failed to check alarm status: x", LastCheckedAt: checked}, wantDesc: "failed to check alarm status: x"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			frepo := &fakeAlarmRepo{}
			svc := NewAlarmLogService(frepo, nil)
			if err := svc.Record(context.Background(), tc.typ, tc.state); err != nil {
				t.Fatalf("Record: %v", err)
			}
			if len(frepo.appended) != 1 {
				t.Fatalf("appended %d events", len(frepo.appended))
			}
			ev := frepo.appended[0]
			if ev.EventID == "" || ev.Type != tc.typ || ev.Description != tc.wantDesc {
				t.Errorf("event = %+v", ev)
			}
			if !ev.OccurredAt.Equal(checked) || ev.OccurredAt.Location() != time.UTC {
				t.Errorf("OccurredAt = %v", ev.OccurredAt)
			}
			meta, ok := ev.Metadata.(map[string]any)
			if !ok || meta["is_alarm"] != tc.state.IsAlarm {
				t.Errorf("Metadata = %#v", ev.Metadata)
			}
			if _, hasErr := meta["error"]; hasErr != (tc.state.Error != "") {
				t.Errorf("error meta presence mismatch: %#v", meta)
			}
		})
	}
}

func TestAlarmLogService_RecordZeroTimeUsesNow(t *testing.T) {
	t.Parallel()

	frepo := &fakeAlarmRepo{}
	svc := NewAlarmLogService(frepo, nil)
	svc.now = func() time.Time { return t0 }

	if err := svc.Record(context.Background(), models.AlarmEventChanged, models.AlarmState{}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !frepo.appended[0].OccurredAt.Equal(t0) {
		t.Fatalf("OccurredAt = %v; want %v", frepo.appended[0].OccurredAt, t0)
	}
}

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) ReportError(event string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func TestAlarmLogService_AttachJournalsBusEvents(t *testing.T) {
	t.Parallel()

	frepo := &fakeAlarmRepo{}
	sink := &errorSink{}
	ch := events.NewChannel(sink)
	svc := NewAlarmLogService(frepo, nil)
	subs := svc.Attach(ch)

	ch.Publish(events.AlarmChanged, models.AlarmState{IsAlarm: true, LastCheckedAt: t0})
	ch.Publish(events.AlarmError, models.AlarmState{Error: "boom", LastCheckedAt: t0})
	ch.Publish(events.AlarmChanged, "not a state")

	if len(frepo.appended) != 2 {
		t.Fatalf("journaled %d events; want 2", len(frepo.appended))
	}
	if frepo.appended[0].Type != models.AlarmEventChanged || frepo.appended[1].Type != models.AlarmEventError {
		t.Errorf("types = %s, %s", frepo.appended[0].Type, frepo.appended[1].Type)
	}
	if len(sink.errs) != 1 || !errors.Is(sink.errs[0], errUnexpectedArgs) {
		t.Errorf("reported errors = %v", sink.errs)
	}

	frepo.appendErr = errors.New("disk full")
	ch.Publish(events.AlarmChanged, models.AlarmState{LastCheckedAt: t0})
	if len(sink.errs) != 2 || !strings.Contains(sink.errs[1].Error(), "disk full") {
		t.Errorf("append failure not reported: %v", sink.errs)
	}

	for _, s := range subs {
		s.Unsubscribe()
	}
	frepo.appendErr = nil
	ch.Publish(events.AlarmChanged, models.AlarmState{LastCheckedAt: t0})
	if len(frepo.appended) != 2 {
		t.Fatalf("journal still attached after unsubscribe")
	}
}
