package alarm

import (
	"context"
	"errors"
	"sync"
	"time"

	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/telemetry"
)

// DefaultEvaluationInterval is the evaluation tick.
const DefaultEvaluationInterval = 2 * time.Second

var ErrUnknownSignal = errors.New("unknown signal")

// Config configures an Engine.
type Config struct {
	Settings    models.Settings
	Policy      ThresholdPolicy
	DataTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// ObserveDuration, if set, receives the wall time of every Evaluate.
	ObserveDuration func(time.Duration)
}

// IngestResult describes what Ingest did with one message.
type IngestResult struct {
	Topic      string
	Payload    string
	Channel    models.Channel
	Tracked    bool
	Value      float64
	Numeric    bool
	ParseError error
	ReceivedAt time.Time
}

// Engine owns the signal state machines. Ingest may be called from the
// transport goroutine while Evaluate runs on the ticker; both serialize on mu.
type Engine struct {
	mu          sync.Mutex
	settings    models.Settings
	kub         *ThresholdSignal
	deflegmator *ThresholdSignal
	stability   *StabilitySignal
	watchdog    *Watchdog
	store       *telemetry.Store
	latest      *telemetry.LatestValues
	sink        Sink
	now         func() time.Time
	observe     func(time.Duration)
}

func NewEngine(cfg Config, store *telemetry.Store, latest *telemetry.LatestValues, sink Sink) (*Engine, error) {
	if store == nil || latest == nil {
		return nil, errors.New("store and latest values cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("alarm sink cannot be nil")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		settings:    cfg.Settings,
		kub:         NewThresholdSignal(models.SignalKub, "T куба", models.ChannelCube, cfg.Policy),
		deflegmator: NewThresholdSignal(models.SignalDeflegmator, "T дефлегматора", models.ChannelDeflegmator, cfg.Policy),
		stability:   NewStabilitySignal(models.ChannelCube, models.ChannelColumn),
		watchdog:    NewWatchdog(cfg.DataTimeout, now()),
		store:       store,
		latest:      latest,
		sink:        sink,
		now:         now,
		observe:     cfg.ObserveDuration,
	}, nil
}

// Ingest applies one inbound message. The raw payload always lands in the
// latest value table; tracked channels with a numeric payload are appended
// to the store.
func (e *Engine) Ingest(topic, payload string, at time.Time) IngestResult {
	res := IngestResult{Topic: topic, Payload: payload, ReceivedAt: at}

	e.latest.Set(topic, payload, at)

	e.mu.Lock()
	e.watchdog.Touch(at)
	e.mu.Unlock()

	ch, ok := models.ParseChannel(topic)
	if !ok {
		return res
	}
	res.Channel = ch
	res.Tracked = true

	value, err := telemetry.ParseValue(payload)
	if err != nil {
		res.ParseError = err
		return res
	}

	e.store.Append(ch, at, value)
	res.Value = value
	res.Numeric = true
	return res
}

// Evaluate runs the watchdog and all three signals once.
func (e *Engine) Evaluate(now time.Time) models.MonitorStatus {
	started := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.watchdog.Check(now, e.sink)
	e.evaluateSignals(now)
	status := e.statusLocked(now)

	if e.observe != nil {
		e.observe(time.Since(started))
	}
	return status
}

// evaluateSignals mirrors the device client: when a threshold signal re-arms
// itself, the stability signal is re-armed too and every signal is evaluated
// again.
func (e *Engine) evaluateSignals(now time.Time) {
	for pass := 0; pass < 3; pass++ {
		if e.kub.Evaluate(now, e.latest, e.settings.KubThreshold, e.sink) ||
			e.deflegmator.Evaluate(now, e.latest, e.settings.DeflegmatorThreshold, e.sink) {
			e.stability.Reset()
			continue
		}
		break
	}
	e.stability.Evaluate(now, e.latest, e.store, e.settings.DeltaT, e.settings.PeriodSeconds, e.sink)
}

// Reset re-arms a signal and re-evaluates immediately, so a condition that
// still holds fires again.
func (e *Engine) Reset(signal string) (models.SignalStatus, error) {
	return e.setArmed(signal, true)
}

// SetEnabled arms (enabled) or disarms a signal.
func (e *Engine) SetEnabled(signal string, enabled bool) (models.SignalStatus, error) {
	return e.setArmed(signal, enabled)
}

func (e *Engine) setArmed(signal string, armed bool) (models.SignalStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var target interface {
		Reset()
		Disable()
		Status() models.SignalStatus
	}
	switch signal {
	case models.SignalKub:
		target = e.kub
	case models.SignalDeflegmator:
		target = e.deflegmator
	case models.SignalStability:
		target = e.stability
	default:
		return models.SignalStatus{}, ErrUnknownSignal
	}

	if armed {
		target.Reset()
	} else {
		target.Disable()
	}
	e.evaluateSignals(e.now())
	return target.Status(), nil
}

// UpdateSettings validates and applies s. Only signals whose parameters
// changed are reset. It returns the names of the reset signals.
func (e *Engine) UpdateSettings(s models.Settings) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.settings
	e.settings = s

	var reset []string
	if old.KubThreshold != s.KubThreshold {
		e.kub.Reset()
		reset = append(reset, models.SignalKub)
	}
	if old.DeflegmatorThreshold != s.DeflegmatorThreshold {
		e.deflegmator.Reset()
		reset = append(reset, models.SignalDeflegmator)
	}
	if old.DeltaT != s.DeltaT || old.PeriodSeconds != s.PeriodSeconds {
		e.stability.Reset()
		reset = append(reset, models.SignalStability)
	}

	if len(reset) > 0 {
		e.evaluateSignals(e.now())
	}
	return reset, nil
}

func (e *Engine) Settings() models.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// CurrentStatus returns the statuses reported by the last evaluation.
func (e *Engine) CurrentStatus() models.MonitorStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked(e.now())
}

func (e *Engine) statusLocked(now time.Time) models.MonitorStatus {
	return models.MonitorStatus{
		Signals: []models.SignalStatus{
			e.kub.Status(),
			e.deflegmator.Status(),
			e.stability.Status(),
		},
		Watchdog: e.watchdog.Status(now),
		Settings: e.settings,
	}
}

// Run evaluates on every tick until ctx is cancelled. onTick may be nil.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onTick func(models.MonitorStatus)) {
	if interval <= 0 {
		interval = DefaultEvaluationInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := e.Evaluate(e.now())
			if onTick != nil {
				onTick(status)
			}
		}
	}
}
