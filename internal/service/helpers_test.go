package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AlcoMonitorAPI/internal/alarm"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/metrics"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/telemetry"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type broadcast struct {
	msgType string
	payload interface{}
}

type recordingHub struct {
	mu       sync.Mutex
	messages []broadcast
}

func (h *recordingHub) Broadcast(msgType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, broadcast{msgType, payload})
}

func (h *recordingHub) ofType(msgType string) []interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []interface{}
	for _, m := range h.messages {
		if m.msgType == msgType {
			out = append(out, m.payload)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeAlarmRepo struct {
	mu      sync.Mutex
	created []models.Alarm
	listErr error
}

func (r *fakeAlarmRepo) Create(ctx context.Context, a *models.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *a)
	return nil
}

func (r *fakeAlarmRepo) List(ctx context.Context, limit, offset int) ([]models.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]models.Alarm(nil), r.created...), nil
}

func (r *fakeAlarmRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type fakeSampleRepo struct {
	mu       sync.Mutex
	inserted []models.ChannelSample
	stored   []models.Sample
}

func (r *fakeSampleRepo) Insert(ctx context.Context, s models.ChannelSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, s)
	return nil
}

func (r *fakeSampleRepo) Range(ctx context.Context, ch models.Channel, from, to time.Time) ([]models.Sample, error) {
	return r.stored, nil
}

type fakeRecorder struct {
	topics []string
}

func (r *fakeRecorder) Record(topic, payload string, at time.Time) error {
	r.topics = append(r.topics, topic)
	return nil
}

type publishCall struct {
	kind  string
	name  string
	value float64
}

type fakePublisher struct {
	calls  []publishCall
	failOn string
}

func (p *fakePublisher) record(kind, name string, value float64) error {
	p.calls = append(p.calls, publishCall{kind, name, value})
	if p.failOn != "" && p.failOn == name {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *fakePublisher) SendWorkMode(ctx context.Context, state models.WorkState) error {
	return p.record("work", "work", float64(state))
}

func (p *fakePublisher) SendParameter(ctx context.Context, name string, value float64) error {
	return p.record("parameter", name, value)
}

func (p *fakePublisher) SendRazgonStopTemp(ctx context.Context, t float64) error {
	return p.record("razgon", "term_k_r", t)
}

type fakeCommandRepo struct {
	created []models.Command
	updates []string
}

func (r *fakeCommandRepo) Create(ctx context.Context, cmd *models.Command) error {
	r.created = append(r.created, *cmd)
	return nil
}

func (r *fakeCommandRepo) UpdateStatus(ctx context.Context, id, status, errMsg string, sentAt *time.Time) error {
	r.updates = append(r.updates, status)
	return nil
}

func (r *fakeCommandRepo) ListRecent(ctx context.Context, limit int) ([]models.Command, error) {
	out := make([]models.Command, 0, limit)
	for i := len(r.created) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.created[i])
	}
	return out, nil
}

type monitorFixture struct {
	engine  *alarm.Engine
	monitor *MonitorService
	hub     *recordingHub
	metrics *metrics.Metrics
	clock   *fakeClock
	sink    *AlarmService
}

func newMonitorFixture(t *testing.T, samples *fakeSampleRepo, recorder Recorder) *monitorFixture {
	t.Helper()

	clock := &fakeClock{now: t0}
	hub := &recordingHub{}
	m := metrics.New()
	log := logger.NewNop()
	alarms := NewAlarmService(nil, hub, m, log, 0)

	store := telemetry.NewStore(1000)
	latest := telemetry.NewLatestValues()
	engine, err := alarm.NewEngine(alarm.Config{
		Settings:    models.DefaultSettings(),
		Policy:      alarm.AutoResetBelowThreshold,
		DataTimeout: time.Minute,
		Now:         clock.Now,
	}, store, latest, alarms)
	require.NoError(t, err)

	cfg := MonitorServiceConfig{
		Engine:   engine,
		Store:    store,
		Latest:   latest,
		Recorder: recorder,
		Hub:      hub,
		Metrics:  m,
		Logger:   log,
		Now:      clock.Now,
	}
	if samples != nil {
		cfg.Samples = samples
	}

	monitor, err := NewMonitorService(cfg)
	require.NoError(t, err)

	return &monitorFixture{engine: engine, monitor: monitor, hub: hub, metrics: m, clock: clock, sink: alarms}
}
