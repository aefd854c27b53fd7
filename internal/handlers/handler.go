package handlers

import (
	"net/http"

	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// Event stream (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

// CORS wraps the router so the browser dashboard can call the API from
// another origin.
func (h *Handler) CORS(next http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(next)
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerReadingRoutes(api)
		h.registerAlarmRoutes(api)
		h.registerHistoryRoutes(api)
	}
}

func (h *Handler) registerReadingRoutes(api *gin.RouterGroup) {
	api.GET("/readings", h.selectReadings)
	api.POST("/readings/live", h.liveReadings)
	api.GET("/trends", h.getTrends)
	api.GET("/trends/:sensor", h.getTrend)
}

func (h *Handler) registerAlarmRoutes(api *gin.RouterGroup) {
	alarm := api.Group("/alarm")
	{
		alarm.GET("", h.getAlarm)
		// Body example: {"interval_ms":5000}
		alarm.POST("/start", h.startAlarm)
		alarm.POST("/stop", h.stopAlarm)
	}
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	alarms := api.Group("/alarms")
	{
		alarms.GET("/history", h.getAlarmHistory)
	}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}
