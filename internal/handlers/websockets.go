package handlers

import (
	"net/http"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
	sendBuffer = 32
)

// Message types sent to clients.
const (
	wsTypeSnapshot = "snapshot"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Upgrader for HTTP -> WebSocket. Browser origins are enforced by the CORS
// layer for API calls only.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamedEvents are forwarded from the event channel to every client.
var streamedEvents = []string{events.ReadingUpdated, events.AlarmChanged, events.AlarmError}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	out := make(chan wsEnvelope, sendBuffer)
	subs := h.subscribe(out)
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Send the current state immediately.
	if err := h.write(conn, wsEnvelope{Type: wsTypeSnapshot, Data: h.snapshot()}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case env := <-out:
			if err := h.write(conn, env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err, "type", env.Type)
				}
				return
			}
		}
	}
}

// subscribe forwards channel events into out. Publishers never block on a
// slow client: when out is full the event is dropped for that client.
func (h *Handler) subscribe(out chan<- wsEnvelope) []*events.Subscription {
	if h.services.Events == nil {
		return nil
	}
	subs := make([]*events.Subscription, 0, len(streamedEvents))
	for _, name := range streamedEvents {
		name := name
		subs = append(subs, h.services.Events.Subscribe(name, func(args ...any) error {
			env := wsEnvelope{Type: name}
			if len(args) > 0 {
				env.Data = args[0]
			}
			if st, ok := env.Data.(models.AlarmState); ok {
				env.Error = st.Error
			}
			select {
			case out <- env:
			default:
				if h.log != nil {
					h.log.Warnw("ws_event_dropped", "type", name)
				}
			}
			return nil
		}))
	}
	return subs
}

func (h *Handler) snapshot() gin.H {
	return gin.H{
		"trends": h.services.Readings.Trends(),
		"alarm":  h.alarmStatus(""),
	}
}

func (h *Handler) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}
