package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"sensor_monitor/internal/models"
)

// ----------- Simulation constants -----------
const (
	TempMinC         = 20.0 // simulated temperature band, °C
	TempMaxC         = 30.0
	HumidityMinPct   = 40.0 // simulated humidity band, %
	HumidityMaxPct   = 60.0
	MaxStepFraction  = 0.05 // largest random-walk step as a share of the band
	DefaultSimSample = 2 * time.Minute
)

type simBand struct {
	min, max float64
}

var simBands = map[int]simBand{
	models.SensorTemperature: {min: TempMinC, max: TempMaxC},
	models.SensorHumidity:    {min: HumidityMinPct, max: HumidityMaxPct},
}

// SimulatorSource produces random-walk readings for both sensors. It stands
// in for the upstream API during development and serves both the history
// and the latest-reading fetch contracts.
type SimulatorSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	sample time.Duration
	loc    *time.Location
	now    func() time.Time
	last   map[int]float64
}

// NewSimulatorSource returns a simulator seeded with seed. Query dates are
// interpreted in loc (UTC when nil); history readings are spaced by sample.
func NewSimulatorSource(seed uint64, sample time.Duration, loc *time.Location) *SimulatorSource {
	if sample <= 0 {
		sample = DefaultSimSample
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SimulatorSource{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sample: sample,
		loc:    loc,
		now:    time.Now,
		last:   make(map[int]float64),
	}
}

// FetchReadings generates one reading per sample interval in the query range,
// oldest first, sensors interleaved.
func (s *SimulatorSource) FetchReadings(ctx context.Context, q models.QueryDescriptor) ([]models.Reading, error) {
	from, to, err := q.Bounds(s.loc)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sensors := q.Sensors()
	values := make(map[int]float64, len(sensors))
	for _, id := range sensors {
		values[id] = s.seedValue(id)
	}

	var out []models.Reading
	for ts := from; ts.Before(to); ts = ts.Add(s.sample) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, id := range sensors {
			values[id] = s.step(id, values[id])
			out = append(out, models.Reading{SensorID: id, Value: values[id], Timestamp: ts.UTC()})
		}
	}
	return out, nil
}

// FetchLatest advances each sensor's walk by one step, stamped now.
func (s *SimulatorSource) FetchLatest(ctx context.Context) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	out := make([]models.Reading, 0, len(simBands))
	for _, id := range models.SensorIDs() {
		prev, ok := s.last[id]
		if !ok {
			prev = s.seedValue(id)
		}
		v := s.step(id, prev)
		s.last[id] = v
		out = append(out, models.Reading{SensorID: id, Value: v, Timestamp: now})
	}
	return out, nil
}

// seedValue draws a uniform value inside the sensor's band.
func (s *SimulatorSource) seedValue(id int) float64 {
	b := simBands[id]
	return b.min + s.rng.Float64()*(b.max-b.min)
}

// step moves v by a bounded random amount and clamps it to the band.
func (s *SimulatorSource) step(id int, v float64) float64 {
	b := simBands[id]
	maxStep := (b.max - b.min) * MaxStepFraction
	v += (s.rng.Float64()*2 - 1) * maxStep
	return clamp(v, b.min, b.max)
}

// helpers
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
