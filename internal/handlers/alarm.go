package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusStarted = "started"
	statusStopped = "stopped"

	errInvalidBodyPref = "invalid body: "
	maxAlarmIntervalMs = 3_600_000 // 1h
)

// Request DTO for starting the alarm monitor.
type startAlarmRequest struct {
	IntervalMs int `json:"interval_ms"`
}

// StartAlarmRequest is an exported model for Swagger docs of the startAlarm payload.
type StartAlarmRequest struct {
	// Poll interval in milliseconds; 0 uses the configured default
	IntervalMs int `json:"interval_ms,omitempty" example:"5000"`
}

func (h *Handler) alarmStatus(status string) gin.H {
	resp := gin.H{
		"state":       h.services.Alarm.State(),
		"phase":       h.services.Alarm.Phase(),
		"running":     h.services.Alarm.Running(),
		"interval_ms": h.services.Alarm.Interval().Milliseconds(),
	}
	if status != "" {
		resp["status"] = status
	}
	return resp
}

// @Summary      Alarm state
// @Tags         alarm
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "state, phase, running, interval_ms"
// @Router       /api/v1/alarm [get]
func (h *Handler) getAlarm(c *gin.Context) {
	c.JSON(http.StatusOK, h.alarmStatus(""))
}

// @Summary      Start alarm polling
// @Description  Checks immediately, then every interval_ms (alarm.interval from config when 0 or omitted). Starting a running monitor does nothing.
// @Tags         alarm
// @Accept       json
// @Produce      json
// @Param        body  body   StartAlarmRequest  false  "Poll interval"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/alarm/start [post]
func (h *Handler) startAlarm(c *gin.Context) {
	var req startAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if req.IntervalMs < 0 || req.IntervalMs > maxAlarmIntervalMs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval_ms must be between 0 and 3600000"})
		return
	}
	// the loop outlives the request
	ctx := context.WithoutCancel(c.Request.Context())
	h.services.Alarm.Start(ctx, time.Duration(req.IntervalMs)*time.Millisecond)
	c.JSON(http.StatusOK, h.alarmStatus(statusStarted))
}

// @Summary      Stop alarm polling
// @Tags         alarm
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/alarm/stop [post]
func (h *Handler) stopAlarm(c *gin.Context) {
	h.services.Alarm.Stop()
	c.JSON(http.StatusOK, h.alarmStatus(statusStopped))
}
