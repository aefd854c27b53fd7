package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sensor_monitor/internal/models"
)

func TestAlarmHandlers(t *testing.T) {
	s, _, alarm, _ := newMockService()
	alarm.state = models.AlarmState{IsAlarm: true}
	r := newTestRouter(s)

	// GET state
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alarm", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	var out struct {
		State   models.AlarmState `json:"state"`
		Phase   string            `json:"phase"`
		Running bool              `json:"running"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if !out.State.IsAlarm || out.Phase != "IDLE" || out.Running {
		t.Fatalf("unexpected alarm response: %+v", out)
	}

	// Start with interval
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alarm/start", strings.NewReader(`{"interval_ms":250}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d body=%s", w.Code, w.Body.String())
	}
	if alarm.startCalled != 1 || alarm.lastInterval != 250*time.Millisecond {
		t.Fatalf("Start calls=%d interval=%v", alarm.startCalled, alarm.lastInterval)
	}

	// Start without body uses the default interval
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/alarm/start", nil))
	if w.Code != http.StatusOK || alarm.lastInterval != 0 {
		t.Fatalf("empty start status=%d interval=%v", w.Code, alarm.lastInterval)
	}

	// Stop
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/alarm/stop", nil))
	if w.Code != http.StatusOK || alarm.stopCalled != 1 || alarm.running {
		t.Fatalf("stop status=%d calls=%d", w.Code, alarm.stopCalled)
	}
}

func TestStartAlarm_InvalidBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"interval_ms":`},
		{"negative interval", `{"interval_ms":-5}`},
		{"interval too large", `{"interval_ms":7200000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, alarm, _ := newMockService()
			r := newTestRouter(s)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/alarm/start", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d want 400", w.Code)
			}
			if alarm.startCalled != 0 {
				t.Fatalf("Start called on invalid body")
			}
		})
	}
}

func TestStartAlarm_ReportsEffectiveInterval(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		wantMs int64
	}{
		{"no body uses configured", "", 5000},
		{"zero uses configured", `{"interval_ms":0}`, 5000},
		{"explicit interval", `{"interval_ms":250}`, 250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, _, _ := newMockService()
			r := newTestRouter(s)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/alarm/start", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			var out struct {
				IntervalMs int64 `json:"interval_ms"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.IntervalMs != tc.wantMs {
				t.Fatalf("interval_ms=%d want %d", out.IntervalMs, tc.wantMs)
			}
		})
	}
}
