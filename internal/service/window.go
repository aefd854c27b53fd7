package service

import (
	"errors"
	"fmt"
	"sync"

	"sensor_monitor/internal/models"
)

// DefaultWindowSize is the number of recent readings kept per sensor.
const DefaultWindowSize = 6

// ErrOutOfOrderReading is returned when a reading is older than the newest
// reading already stored for its sensor. The reading is dropped.
var ErrOutOfOrderReading = errors.New("out-of-order reading")

// ReadingWindow is a fixed-capacity FIFO of one sensor's latest readings,
// oldest first.
type ReadingWindow struct {
	readings []models.Reading
	capacity int
}

// NewReadingWindow returns an empty window. Non-positive capacity falls back
// to DefaultWindowSize.
func NewReadingWindow(capacity int) *ReadingWindow {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &ReadingWindow{
		readings: make([]models.Reading, 0, capacity),
		capacity: capacity,
	}
}

// Append adds r at the tail and evicts the head when over capacity.
// Timestamps must be monotonically non-decreasing.
func (w *ReadingWindow) Append(r models.Reading) error {
	if n := len(w.readings); n > 0 {
		last := w.readings[n-1].Timestamp
		if r.Timestamp.Before(last) {
			return fmt.Errorf("%w: sensor %d at %s is before %s",
				ErrOutOfOrderReading, r.SensorID, r.Timestamp.Format(timeLogLayout), last.Format(timeLogLayout))
		}
	}
	if len(w.readings) >= w.capacity {
		copy(w.readings, w.readings[1:])
		w.readings[len(w.readings)-1] = r
		return nil
	}
	w.readings = append(w.readings, r)
	return nil
}

// Snapshot returns an independent copy of the readings, oldest first.
func (w *ReadingWindow) Snapshot() []models.Reading {
	out := make([]models.Reading, len(w.readings))
	copy(out, w.readings)
	return out
}

// Clear empties the window.
func (w *ReadingWindow) Clear() {
	w.readings = w.readings[:0]
}

// Len returns the number of stored readings.
func (w *ReadingWindow) Len() int { return len(w.readings) }

// Capacity returns the maximum number of stored readings.
func (w *ReadingWindow) Capacity() int { return w.capacity }

// WindowSet owns one ReadingWindow per sensor id.
type WindowSet struct {
	mu       sync.RWMutex
	windows  map[int]*ReadingWindow
	capacity int
}

// NewWindowSet returns a set whose windows hold capacity readings each.
func NewWindowSet(capacity int) *WindowSet {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &WindowSet{
		windows:  make(map[int]*ReadingWindow),
		capacity: capacity,
	}
}

// Append routes r to its sensor's window.
func (s *WindowSet) Append(r models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[r.SensorID]
	if !ok {
		w = NewReadingWindow(s.capacity)
		s.windows[r.SensorID] = w
	}
	return w.Append(r)
}

// Snapshot returns a copy of the sensor's window; empty when unknown.
func (s *WindowSet) Snapshot(sensorID int) []models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[sensorID]
	if !ok {
		return []models.Reading{}
	}
	return w.Snapshot()
}

// Replace empties the sensor's window and refills it with readings under one
// lock, so no concurrent Append can land in between. Out-of-order readings
// are dropped; the number dropped is returned.
func (s *WindowSet) Replace(sensorID int, readings []models.Reading) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[sensorID]
	if !ok {
		w = NewReadingWindow(s.capacity)
		s.windows[sensorID] = w
	}
	w.Clear()
	dropped := 0
	for _, r := range readings {
		if r.SensorID != sensorID {
			continue
		}
		if err := w.Append(r); err != nil {
			dropped++
		}
	}
	return dropped
}

// Clear empties the sensor's window.
func (s *WindowSet) Clear(sensorID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[sensorID]; ok {
		w.Clear()
	}
}

// ClearAll empties every window.
func (s *WindowSet) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windows {
		w.Clear()
	}
}

// Capacity returns the per-sensor capacity.
func (s *WindowSet) Capacity() int { return s.capacity }

const timeLogLayout = "2006-01-02T15:04:05.000Z07:00"
