package handlers

import (
	"context"
	"time"

	"sensor_monitor/internal/events"
	"sensor_monitor/internal/models"
	"sensor_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockReadings struct {
	selectResp []models.SensorTrend
	selectErr  error
	lastQuery  models.QueryDescriptor
	selects    int

	trends   []models.SensorTrend
	trend    models.SensorTrend
	trendErr error
	current  *models.QueryDescriptor
	corr     models.Correlation
	lives    int
}

func (m *mockReadings) Select(ctx context.Context, q models.QueryDescriptor) ([]models.SensorTrend, error) {
	m.selects++
	m.lastQuery = q
	return m.selectResp, m.selectErr
}
func (m *mockReadings) Live() []models.SensorTrend {
	m.lives++
	m.current = nil
	return m.trends
}
func (m *mockReadings) Ingest(r models.Reading) (models.SensorTrend, error) {
	return models.SensorTrend{SensorID: r.SensorID}, nil
}
func (m *mockReadings) Trend(sensorID int) (models.SensorTrend, error) {
	return m.trend, m.trendErr
}
func (m *mockReadings) Trends() []models.SensorTrend    { return m.trends }
func (m *mockReadings) Correlation() models.Correlation { return m.corr }
func (m *mockReadings) CurrentQuery() (models.QueryDescriptor, bool) {
	if m.current == nil {
		return models.QueryDescriptor{}, false
	}
	return *m.current, true
}

type mockAlarm struct {
	state        models.AlarmState
	phase        string
	running      bool
	lastInterval time.Duration
	configured   time.Duration
	startCalled  int
	stopCalled   int
}

func (m *mockAlarm) Start(ctx context.Context, interval time.Duration) {
	m.startCalled++
	m.lastInterval = interval
	m.running = true
}
func (m *mockAlarm) Stop() {
	m.stopCalled++
	m.running = false
}
func (m *mockAlarm) State() models.AlarmState { return m.state }
func (m *mockAlarm) Phase() string            { return m.phase }
func (m *mockAlarm) Running() bool            { return m.running }
func (m *mockAlarm) Interval() time.Duration {
	if m.running && m.lastInterval > 0 {
		return m.lastInterval
	}
	return m.configured
}

type mockAlarmLog struct {
	resp     []models.AlarmEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	calls    int
}

func (m *mockAlarmLog) List(ctx context.Context, f service.LogFilter) ([]models.AlarmEvent, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newMockService() (*service.Service, *mockReadings, *mockAlarm, *mockAlarmLog) {
	r := &mockReadings{}
	a := &mockAlarm{phase: "IDLE", configured: 5 * time.Second}
	l := &mockAlarmLog{}
	s := &service.Service{
		Readings: r,
		Alarm:    a,
		AlarmLog: l,
		Events:   events.NewChannel(nil),
	}
	return s, r, a, l
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
