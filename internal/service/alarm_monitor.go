package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/models"
)

// DefaultAlarmInterval is the poll cadence used when neither the monitor nor
// Start is given a positive interval.
const DefaultAlarmInterval = 5 * time.Second

// Alarm monitor phases.
const (
	PhaseIdle     = "IDLE"
	PhaseChecking = "CHECKING"
	PhaseOk       = "OK"
	PhaseFailed   = "FAILED"
)

// ErrAlarmCheckFailed wraps every failure of the alarm-check collaborator.
var ErrAlarmCheckFailed = errors.New("failed to check alarm status")

// AlarmChecker answers whether an alarm is currently active.
type AlarmChecker interface {
	CheckAlarm(ctx context.Context) (bool, error)
}

// Publisher is the part of the event channel the monitors publish through.
type Publisher interface {
	Publish(event string, args ...any)
}

// AlarmMonitor polls an AlarmChecker at a constant cadence and publishes
// alarmChanged when the alarm flips and alarmError on every failed check.
// There is no backoff: failures are reported, never retried early.
//
// Subscribers of the monitor's events must not call Start or Stop from the
// callback; publication happens while the lifecycle lock is held so that Stop
// can guarantee nothing is published after it returns.
type AlarmMonitor struct {
	checker AlarmChecker
	bus     Publisher
	log     *logger.Logger
	now     func() time.Time

	// defaultInterval applies when Start gets a non-positive interval.
	defaultInterval time.Duration

	lifeMu     sync.Mutex
	running    bool
	interval   time.Duration
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	stateMu sync.RWMutex
	state   models.AlarmState
	phase   string
}

// NewAlarmMonitor returns an idle monitor. interval is the configured poll
// cadence; non-positive means DefaultAlarmInterval. log may be nil.
func NewAlarmMonitor(checker AlarmChecker, bus Publisher, interval time.Duration, log *logger.Logger) *AlarmMonitor {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = DefaultAlarmInterval
	}
	return &AlarmMonitor{
		checker:         checker,
		bus:             bus,
		log:             log,
		now:             time.Now,
		defaultInterval: interval,
		phase:           PhaseIdle,
	}
}

// Start checks once immediately and then every interval until Stop or ctx
// cancellation. A non-positive interval uses the monitor's configured one.
// Calling Start while running does nothing.
func (m *AlarmMonitor) Start(ctx context.Context, interval time.Duration) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.running {
		return
	}
	if interval <= 0 {
		interval = m.defaultInterval
	}
	m.running = true
	m.interval = interval
	m.generation++
	gen := m.generation

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.run(loopCtx, gen, interval)
	m.log.Infow("alarm_monitor_started", "interval", interval)
}

// Stop cancels the poll loop. A check still in flight may finish, but its
// result is discarded. No event is published after Stop returns.
func (m *AlarmMonitor) Stop() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.generation++
	m.cancel()
	m.setPhase(PhaseIdle)
	m.log.Infow("alarm_monitor_stopped")
}

// Wait blocks until the poll loop goroutine has exited.
func (m *AlarmMonitor) Wait() {
	m.wg.Wait()
}

// Running reports whether the poll loop is active.
func (m *AlarmMonitor) Running() bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.running
}

// Interval returns the cadence of the running loop, or the configured
// default while stopped.
func (m *AlarmMonitor) Interval() time.Duration {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.running {
		return m.interval
	}
	return m.defaultInterval
}

// State returns a copy of the current alarm state.
func (m *AlarmMonitor) State() models.AlarmState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Phase returns the current state-machine phase.
func (m *AlarmMonitor) Phase() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.phase
}

func (m *AlarmMonitor) run(ctx context.Context, gen uint64, interval time.Duration) {
	defer m.wg.Done()
	defer m.finish(gen)

	t := time.NewTicker(interval)
	defer t.Stop()

	m.poll(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.poll(ctx, gen)
		}
	}
}

// finish marks the monitor stopped when the loop exits on its own
// (parent context cancelled) rather than through Stop.
func (m *AlarmMonitor) finish(gen uint64) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.running && m.generation == gen {
		m.running = false
		m.generation++
		m.setPhase(PhaseIdle)
	}
}

// checkOnce runs a single cycle for the current generation.
func (m *AlarmMonitor) checkOnce(ctx context.Context) {
	m.lifeMu.Lock()
	gen, running := m.generation, m.running
	m.lifeMu.Unlock()
	if running {
		m.poll(ctx, gen)
	}
}

func (m *AlarmMonitor) poll(ctx context.Context, gen uint64) {
	if !m.enter(gen) {
		return
	}
	// cancelling the loop must not abort a check already in flight
	isAlarm, err := m.checker.CheckAlarm(context.WithoutCancel(ctx))
	m.apply(gen, isAlarm, err)
}

func (m *AlarmMonitor) enter(gen uint64) bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if !m.running || m.generation != gen {
		return false
	}
	m.setPhase(PhaseChecking)
	return true
}

func (m *AlarmMonitor) apply(gen uint64, isAlarm bool, checkErr error) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if !m.running || m.generation != gen {
		m.log.Debugw("alarm_check_result_discarded", "generation", gen)
		return
	}

	now := m.now().UTC()
	m.stateMu.Lock()
	if checkErr != nil {
		m.state.Error = fmt.Errorf("%w: %v", ErrAlarmCheckFailed, checkErr).Error()
		m.state.LastCheckedAt = now
		m.phase = PhaseFailed
		st := m.state
		m.stateMu.Unlock()

		m.log.Warnw("alarm_check_failed", "err", checkErr)
		m.bus.Publish(events.AlarmError, st)
		m.setPhase(PhaseIdle)
		return
	}

	changed := m.state.IsAlarm != isAlarm
	m.state.IsAlarm = isAlarm
	m.state.Error = ""
	m.state.LastCheckedAt = now
	m.phase = PhaseOk
	st := m.state
	m.stateMu.Unlock()

	if changed {
		m.log.Infow("alarm_changed", "is_alarm", isAlarm)
		m.bus.Publish(events.AlarmChanged, st)
	}
	m.setPhase(PhaseIdle)
}

func (m *AlarmMonitor) setPhase(p string) {
	m.stateMu.Lock()
	m.phase = p
	m.stateMu.Unlock()
}
