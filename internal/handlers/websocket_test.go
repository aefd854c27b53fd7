package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, h *Handler) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", h.wsConnect)
	srv := httptest.NewServer(r)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial error: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

// waitSubscribed waits until the handler has registered on the channel.
func waitSubscribed(t *testing.T, ch *events.Channel, event string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ch.Subscribers(event) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no subscriber for %s", event)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_SnapshotThenEvents(t *testing.T) {
	s, rd, alarm, _ := newMockService()
	rd.trends = []models.SensorTrend{{SensorID: 1}, {SensorID: 2}}
	alarm.state = models.AlarmState{IsAlarm: false}
	h := NewHandler(s, nil)

	conn, closeAll := dialWS(t, h)
	defer closeAll()

	first := readEnvelope(t, conn)
	if first.Type != wsTypeSnapshot {
		t.Fatalf("first message type=%q; want snapshot", first.Type)
	}
	var snap struct {
		Trends []models.SensorTrend `json:"trends"`
	}
	if err := json.Unmarshal(first.Data, &snap); err != nil || len(snap.Trends) != 2 {
		t.Fatalf("snapshot data=%s err=%v", first.Data, err)
	}

	waitSubscribed(t, s.Events, events.AlarmChanged)

	s.Events.Publish(events.AlarmChanged, models.AlarmState{IsAlarm: true})
	env := readEnvelope(t, conn)
	if env.Type != events.AlarmChanged {
		t.Fatalf("type=%q; want %q", env.Type, events.AlarmChanged)
	}
	var st models.AlarmState
	_ = json.Unmarshal(env.Data, &st)
	if !st.IsAlarm {
		t.Fatalf("alarm payload=%s", env.Data)
	}

	s.Events.Publish(events.AlarmError, models.AlarmState{Error: "failed to check alarm status: timeout"})
	env = readEnvelope(t, conn)
	if env.Type != events.AlarmError || env.Error == "" {
		t.Fatalf("error envelope=%+v", env)
	}

	s.Events.Publish(events.ReadingUpdated, models.SensorTrend{SensorID: 1})
	env = readEnvelope(t, conn)
	if env.Type != events.ReadingUpdated {
		t.Fatalf("type=%q; want %q", env.Type, events.ReadingUpdated)
	}
}

func TestWebSocket_UnsubscribesOnDisconnect(t *testing.T) {
	s, _, _, _ := newMockService()
	h := NewHandler(s, nil)

	conn, closeAll := dialWS(t, h)
	_ = readEnvelope(t, conn)
	waitSubscribed(t, s.Events, events.ReadingUpdated)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	closeAll()

	deadline := time.Now().Add(2 * time.Second)
	for s.Events.Subscribers(events.ReadingUpdated) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler still subscribed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUpgradeRequired(t *testing.T) {
	s, _, _, _ := newMockService()
	r := newTestRouter(s)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("plain GET /ws status=%d; want 400", w.Code)
	}
}
