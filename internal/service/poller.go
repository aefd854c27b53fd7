package service

import (
	"context"
	"errors"
	"time"

	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/models"
)

// DefaultPollInterval matches the upstream sampling rate.
const DefaultPollInterval = 2 * time.Minute

// Ingester accepts live readings.
type Ingester interface {
	Ingest(r models.Reading) (models.SensorTrend, error)
}

// Poller feeds the latest readings into the pipeline on a fixed tick.
type Poller struct {
	source   LatestFetcher
	readings Ingester
	log      *logger.Logger

	lastSeen map[int]time.Time
}

// NewPoller returns a poller. log may be nil.
func NewPoller(source LatestFetcher, readings Ingester, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{
		source:   source,
		readings: readings,
		log:      log,
		lastSeen: make(map[int]time.Time),
	}
}

// Run polls immediately and then once per tick until ctx is canceled.
func (p *Poller) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultPollInterval
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce ingests every reading newer than the last one seen for its
// sensor. It returns how many readings were ingested.
func (p *Poller) pollOnce(ctx context.Context) int {
	latest, err := p.source.FetchLatest(ctx)
	if err != nil {
		p.log.Warnw("latest_fetch_failed", "err", err)
		return 0
	}
	ingested := 0
	for _, r := range latest {
		if !p.isNew(r) {
			continue
		}
		if _, err := p.readings.Ingest(r); err != nil {
			if errors.Is(err, ErrOutOfOrderReading) || errors.Is(err, ErrSelectionActive) {
				p.log.Debugw("reading_dropped", "sensor_id", r.SensorID, "err", err)
			} else {
				p.log.Warnw("reading_ingest_failed", "sensor_id", r.SensorID, "err", err)
			}
			continue
		}
		p.lastSeen[r.SensorID] = r.Timestamp
		ingested++
	}
	return ingested
}

// isNew reports whether r is strictly newer than the last ingested reading
// of its sensor; upstream returns the same latest reading until a new
// sample lands.
func (p *Poller) isNew(r models.Reading) bool {
	last, ok := p.lastSeen[r.SensorID]
	return !ok || r.Timestamp.After(last)
}
