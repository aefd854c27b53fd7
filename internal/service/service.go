package service

import (
	"context"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/models"
	"sensor_monitor/internal/repository"
)

// Readings exposes the selection pipeline and the current trends.
type Readings interface {
	Select(ctx context.Context, q models.QueryDescriptor) ([]models.SensorTrend, error)
	Live() []models.SensorTrend
	Ingest(r models.Reading) (models.SensorTrend, error)
	Trend(sensorID int) (models.SensorTrend, error)
	Trends() []models.SensorTrend
	Correlation() models.Correlation
	CurrentQuery() (models.QueryDescriptor, bool)
}

// Alarm controls the alarm poll loop and exposes its state.
type Alarm interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
	State() models.AlarmState
	Phase() string
	Running() bool
	Interval() time.Duration
}

// AlarmLog exposes the append-only alarm journal with filtering access.
type AlarmLog interface {
	List(ctx context.Context, f LogFilter) ([]models.AlarmEvent, error)
}

// Service aggregates the sub-services the HTTP layer depends on.
type Service struct {
	Readings
	Alarm
	AlarmLog

	// Events is the bus every sub-service publishes on; the websocket
	// handler subscribes to it.
	Events *events.Channel
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Fetcher         ReadingFetcher
	Checker         AlarmChecker
	Repos           *repository.Repository
	Events          *events.Channel
	Log             *logger.Logger
	WindowSize      int
	StableThreshold float64
	AlarmInterval   time.Duration
}

// NewService builds the pipeline, the alarm monitor and the journal, and
// attaches the journal to the bus.
func NewService(d Deps) *Service {
	readings := NewReadingsService(
		d.Fetcher,
		NewWindowSet(d.WindowSize),
		NewTrendAnalyzer(d.StableThreshold),
		d.Events,
		d.Log,
	)
	journal := NewAlarmLogService(d.Repos.AlarmRepo, d.Log)
	journal.Attach(d.Events)

	return &Service{
		Readings: readings,
		Alarm:    NewAlarmMonitor(d.Checker, d.Events, d.AlarmInterval, d.Log),
		AlarmLog: journal,
		Events:   d.Events,
	}
}
