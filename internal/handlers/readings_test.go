package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sensor_monitor/internal/models"
	"sensor_monitor/internal/service"
)

func TestHealth(t *testing.T) {
	s, _, _, _ := newMockService()
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}

func TestSelectReadings(t *testing.T) {
	cases := []struct {
		name       string
		url        string
		selectErr  error
		wantStatus int
		wantCalls  int
	}{
		{name: "ok all sensors", url: "/api/v1/readings?date=2025-03-04&start=09:00&end=10:00&sensor=all", wantStatus: http.StatusOK, wantCalls: 1},
		{name: "bad range", url: "/api/v1/readings?date=2025-03-04&start=10:00&end=09:00", wantStatus: http.StatusBadRequest},
		{name: "bad date", url: "/api/v1/readings?date=yesterday&start=09:00&end=10:00", wantStatus: http.StatusBadRequest},
		{name: "bad sensor", url: "/api/v1/readings?date=2025-03-04&start=09:00&end=10:00&sensor=9", wantStatus: http.StatusBadRequest},
		{
			name:       "upstream failure",
			url:        "/api/v1/readings?date=2025-03-04&start=09:00&end=10:00",
			selectErr:  fmt.Errorf("%w: %v", service.ErrFetchFailed, errors.New("503")),
			wantStatus: http.StatusBadGateway,
			wantCalls:  1,
		},
		{
			name:       "other failure",
			url:        "/api/v1/readings?date=2025-03-04&start=09:00&end=10:00",
			selectErr:  errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, rd, _, _ := newMockService()
			rd.selectErr = tc.selectErr
			rd.selectResp = []models.SensorTrend{{SensorID: 1}, {SensorID: 2}}
			r := newTestRouter(s)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.url, nil))
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			if rd.selects != tc.wantCalls {
				t.Fatalf("Select calls=%d want %d", rd.selects, tc.wantCalls)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var out struct {
				Query  models.QueryDescriptor `json:"query"`
				Trends []models.SensorTrend   `json:"trends"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(out.Trends) != 2 || out.Query.Date != "2025-03-04" || out.Query.SensorID != nil {
				t.Fatalf("unexpected response: %+v", out)
			}
		})
	}
}

func TestGetTrends(t *testing.T) {
	s, rd, _, _ := newMockService()
	rd.trends = []models.SensorTrend{{SensorID: 1, Direction: "increasing"}}
	rd.current = &models.QueryDescriptor{Date: "2025-03-04", StartTime: "09:00", EndTime: "10:00"}
	rd.corr = models.Correlation{Coefficient: 0.8, Pairs: 4, Strength: "strong", Relationship: "positive"}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if _, ok := out["query"]; !ok {
		t.Fatalf("query missing: %s", w.Body.String())
	}
	var corr models.Correlation
	if err := json.Unmarshal(out["correlation"], &corr); err != nil || corr.Pairs != 4 || corr.Strength != "strong" {
		t.Fatalf("correlation = %+v err=%v", corr, err)
	}
}

func TestLiveReadings(t *testing.T) {
	s, rd, _, _ := newMockService()
	rd.current = &models.QueryDescriptor{Date: "2025-03-04", StartTime: "09:00", EndTime: "10:00"}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/readings/live", nil))
	if w.Code != http.StatusOK || rd.lives != 1 {
		t.Fatalf("status=%d lives=%d", w.Code, rd.lives)
	}
	var out struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Status != statusLive {
		t.Fatalf("status field = %q", out.Status)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil))
	if strings.Contains(w.Body.String(), `"query"`) {
		t.Fatalf("query still reported after live: %s", w.Body.String())
	}
}

func TestGetTrend(t *testing.T) {
	s, rd, _, _ := newMockService()
	rd.trend = models.SensorTrend{SensorID: 2}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends/2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric sensor status=%d", w.Code)
	}

	rd.trendErr = service.ErrInvalidSensor
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends/5", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown sensor status=%d", w.Code)
	}
}
