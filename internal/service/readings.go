package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/models"
)

// predictionSteps is how many future positions each trend extrapolates.
const predictionSteps = 5

var (
	// ErrFetchFailed wraps failures of the historical-data fetch collaborator.
	ErrFetchFailed = errors.New("failed to fetch readings")
	// ErrSelectionActive is returned by Ingest while a historical selection
	// owns the windows. Live readings resume after Live.
	ErrSelectionActive = errors.New("historical selection active; live readings paused")
)

// ReadingFetcher returns the readings matching a query, oldest first.
type ReadingFetcher interface {
	FetchReadings(ctx context.Context, q models.QueryDescriptor) ([]models.Reading, error)
}

// LatestFetcher returns the most recent reading of every sensor.
type LatestFetcher interface {
	FetchLatest(ctx context.Context) ([]models.Reading, error)
}

// ReadingsService is the fetch → window → analyze → publish pipeline.
// It owns the per-sensor windows; nothing else writes to them.
//
// The windows are either in live mode (fed by Ingest) or hold a historical
// selection (set by Select). The two never mix: Ingest is refused while a
// selection is active and Live drops the selection.
type ReadingsService struct {
	fetcher  ReadingFetcher
	windows  *WindowSet
	analyzer *TrendAnalyzer
	bus      Publisher
	log      *logger.Logger

	// mu serializes window writes with the mode switch.
	mu    sync.RWMutex
	query *models.QueryDescriptor
}

// NewReadingsService wires the pipeline. log may be nil.
func NewReadingsService(fetcher ReadingFetcher, windows *WindowSet, analyzer *TrendAnalyzer, bus Publisher, log *logger.Logger) *ReadingsService {
	if log == nil {
		log = logger.Nop()
	}
	return &ReadingsService{
		fetcher:  fetcher,
		windows:  windows,
		analyzer: analyzer,
		bus:      bus,
		log:      log,
	}
}

// Select fetches the readings for q, replaces the windows of the sensors q
// covers and publishes one readingUpdated per sensor. Live ingest pauses
// until Live is called.
// On fetch failure nothing changes and the error wraps ErrFetchFailed.
func (s *ReadingsService) Select(ctx context.Context, q models.QueryDescriptor) ([]models.SensorTrend, error) {
	readings, err := s.fetcher.FetchReadings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	sensors := q.Sensors()
	out := make([]models.SensorTrend, 0, len(sensors))

	s.mu.Lock()
	dropped := 0
	for _, id := range sensors {
		dropped += s.windows.Replace(id, readings)
	}
	s.query = &q
	for _, id := range sensors {
		out = append(out, s.compute(id))
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.log.Infow("readings_dropped_out_of_order", "count", dropped, "date", q.Date)
	}
	for _, st := range out {
		s.bus.Publish(events.ReadingUpdated, st)
	}
	return out, nil
}

// Live drops the historical selection, empties every window and resumes
// live ingest. It returns the (empty) trends.
func (s *ReadingsService) Live() []models.SensorTrend {
	s.mu.Lock()
	s.query = nil
	s.windows.ClearAll()
	s.mu.Unlock()

	s.log.Infow("readings_live_mode")
	out := s.Trends()
	for _, st := range out {
		s.bus.Publish(events.ReadingUpdated, st)
	}
	return out
}

// Ingest appends a single live reading and publishes the sensor's new trend.
// Out-of-order readings are dropped and returned as ErrOutOfOrderReading;
// readings arriving while a selection is active return ErrSelectionActive.
func (s *ReadingsService) Ingest(r models.Reading) (models.SensorTrend, error) {
	if !models.ValidSensorID(r.SensorID) {
		return models.SensorTrend{}, ErrInvalidSensor
	}

	s.mu.Lock()
	if s.query != nil {
		s.mu.Unlock()
		return models.SensorTrend{}, ErrSelectionActive
	}
	if err := s.windows.Append(r); err != nil {
		s.mu.Unlock()
		return models.SensorTrend{}, err
	}
	st := s.compute(r.SensorID)
	s.mu.Unlock()

	s.bus.Publish(events.ReadingUpdated, st)
	return st, nil
}

// Trend analyzes the sensor's current window without publishing.
func (s *ReadingsService) Trend(sensorID int) (models.SensorTrend, error) {
	if !models.ValidSensorID(sensorID) {
		return models.SensorTrend{}, ErrInvalidSensor
	}
	return s.compute(sensorID), nil
}

// Trends analyzes every sensor's current window.
func (s *ReadingsService) Trends() []models.SensorTrend {
	ids := models.SensorIDs()
	out := make([]models.SensorTrend, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.compute(id))
	}
	return out
}

// Correlation relates the temperature and humidity windows.
func (s *ReadingsService) Correlation() models.Correlation {
	return s.analyzer.Correlation(
		s.windows.Snapshot(models.SensorTemperature),
		s.windows.Snapshot(models.SensorHumidity),
	)
}

// CurrentQuery returns the active historical selection; false in live mode.
func (s *ReadingsService) CurrentQuery() (models.QueryDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.query == nil {
		return models.QueryDescriptor{}, false
	}
	return *s.query, true
}

func (s *ReadingsService) compute(sensorID int) models.SensorTrend {
	snap := s.windows.Snapshot(sensorID)
	tr := s.analyzer.Analyze(snap)
	return models.SensorTrend{
		SensorID:   sensorID,
		Readings:   snap,
		Trend:      tr,
		Direction:  s.analyzer.Direction(tr.Slope),
		Stability:  s.analyzer.Stability(tr.Confidence),
		Prediction: s.analyzer.Predict(snap, predictionSteps),
		Summary:    s.analyzer.Summarize(snap),
		Anomalies:  s.analyzer.Anomalies(snap, DefaultAnomalyThreshold),
	}
}
