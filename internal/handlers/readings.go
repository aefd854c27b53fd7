package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sensor_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK   = "ok"
	statusLive = "live"

	errFetchReadings = "failed to fetch readings"
	errSelectFailed  = "failed to select readings"
)

// @Summary      Select readings
// @Description  Fetches the readings of one day's time range, replaces the sensor windows and returns their trends.
// @Tags         readings
// @Produce      json
// @Param        date    query   string  true   "Day (YYYY-MM-DD)"  example(2025-03-04)
// @Param        start   query   string  true   "Start time (HH:MM)"  example(09:00)
// @Param        end     query   string  true   "End time (HH:MM)"  example(10:00)
// @Param        sensor  query   string  false  "Sensor id or 'all'"  Enums(1,2,all)
// @Success      200  {object}  map[string]interface{}  "query, trends"
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/readings [get]
func (h *Handler) selectReadings(c *gin.Context) {
	q, err := service.NewQuery(c.Query("date"), c.Query("start"), c.Query("end"), c.Query("sensor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trends, err := h.services.Readings.Select(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, service.ErrFetchFailed) {
			h.logAndJSONError(c, http.StatusBadGateway, errFetchReadings, "readings_fetch_failed", err, "date", q.Date)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errSelectFailed, "readings_select_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":  q,
		"trends": trends,
	})
}

// @Summary      Resume live readings
// @Description  Drops the historical selection and empties the windows; the poller refills them.
// @Tags         readings
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, trends"
// @Router       /api/v1/readings/live [post]
func (h *Handler) liveReadings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusLive,
		"trends": h.services.Readings.Live(),
	})
}

// @Summary      Current trends
// @Description  Trend of every sensor's current window plus the temperature/humidity correlation. Confidence below the stable threshold is "stable".
// @Tags         readings
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "query, trends, correlation"
// @Router       /api/v1/trends [get]
func (h *Handler) getTrends(c *gin.Context) {
	resp := gin.H{
		"trends":      h.services.Readings.Trends(),
		"correlation": h.services.Readings.Correlation(),
	}
	if q, ok := h.services.Readings.CurrentQuery(); ok {
		resp["query"] = q
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Sensor trend
// @Tags         readings
// @Produce      json
// @Param        sensor  path  int  true  "Sensor id"  Enums(1,2)
// @Success      200  {object}  models.SensorTrend
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/trends/{sensor} [get]
func (h *Handler) getTrend(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("sensor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidSensor.Error()})
		return
	}
	tr, err := h.services.Readings.Trend(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tr)
}
