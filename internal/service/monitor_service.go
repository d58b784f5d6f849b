package service

import (
	"context"
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/alarm"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/metrics"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/repository"
	"AlcoMonitorAPI/internal/telemetry"
	"AlcoMonitorAPI/internal/websocket"
)

// Recorder appends raw device messages to the data logs.
type Recorder interface {
	Record(topic, payload string, at time.Time) error
}

type MonitorServiceConfig struct {
	Engine   *alarm.Engine
	Store    *telemetry.Store
	Latest   *telemetry.LatestValues
	Recorder Recorder
	Samples  repository.ISampleRepository
	Hub      Broadcaster
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Interval time.Duration
	Now      func() time.Time
}

// MonitorService feeds device messages into the engine and drives the
// evaluation loop.
type MonitorService struct {
	engine   *alarm.Engine
	store    *telemetry.Store
	latest   *telemetry.LatestValues
	recorder Recorder
	samples  repository.ISampleRepository
	hub      Broadcaster
	metrics  *metrics.Metrics
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewMonitorService(cfg MonitorServiceConfig) (*MonitorService, error) {
	if cfg.Engine == nil || cfg.Store == nil || cfg.Latest == nil {
		return nil, fmt.Errorf("engine, store and latest values are required")
	}
	if cfg.Hub == nil || cfg.Metrics == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("hub, metrics and logger are required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = alarm.DefaultEvaluationInterval
	}

	return &MonitorService{
		engine:   cfg.Engine,
		store:    cfg.Store,
		latest:   cfg.Latest,
		recorder: cfg.Recorder,
		samples:  cfg.Samples,
		hub:      cfg.Hub,
		metrics:  cfg.Metrics,
		log:      cfg.Logger.Named("monitor"),
		interval: interval,
		now:      now,
	}, nil
}

// HandleMessage adapts ProcessMessage to the MQTT handler signature.
func (s *MonitorService) HandleMessage(topic string, payload []byte) error {
	s.ProcessMessage(context.Background(), topic, string(payload))
	return nil
}

func (s *MonitorService) ProcessMessage(ctx context.Context, topic, payload string) alarm.IngestResult {
	res := s.engine.Ingest(topic, payload, s.now())

	s.metrics.Messages.WithLabelValues(topicKind(res)).Inc()
	s.metrics.LastMessageAge.Set(0)

	if res.Tracked && !res.Numeric {
		s.metrics.MalformedPayloads.WithLabelValues(string(res.Channel)).Inc()
		s.log.Warn("Non-numeric payload on %s: %q", topic, payload)
	} else {
		s.log.Debug("%s = %s", topic, payload)
	}

	if s.recorder != nil {
		if err := s.recorder.Record(topic, payload, res.ReceivedAt); err != nil {
			s.log.Error("Failed to record %s: %v", topic, err)
		}
	}

	if s.samples != nil && res.Numeric {
		saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.samples.Insert(saveCtx, models.ChannelSample{
			Channel:   res.Channel,
			Timestamp: res.ReceivedAt,
			Value:     res.Value,
		})
		cancel()
		if err != nil {
			s.log.Error("Failed to persist sample: %v", err)
		}
	}

	msg := models.TelemetryMessage{
		Topic:      topic,
		Payload:    payload,
		ReceivedAt: res.ReceivedAt,
	}
	if res.Numeric {
		v := res.Value
		msg.Value = &v
	}
	s.hub.Broadcast(websocket.TypeTelemetry, msg)

	return res
}

func topicKind(res alarm.IngestResult) string {
	if res.Tracked {
		return "channel"
	}
	for _, topic := range models.MainTopics {
		if topic == res.Topic {
			return "status"
		}
	}
	return "other"
}

// Start blocks running the evaluation loop until ctx is cancelled.
func (s *MonitorService) Start(ctx context.Context) {
	s.log.Info("Evaluation loop started (every %v)", s.interval)
	s.engine.Run(ctx, s.interval, s.publishStatus)
	s.log.Info("Evaluation loop stopped")
}

func (s *MonitorService) publishStatus(status models.MonitorStatus) {
	for _, sig := range status.Signals {
		s.metrics.SetTriggered(sig.Signal, sig.State == models.StateTriggered)
	}
	s.metrics.SetTriggered(models.SignalWatchdog, status.Watchdog.AlarmActive)
	s.metrics.LastMessageAge.Set(s.now().Sub(status.Watchdog.LastMessageAt).Seconds())

	s.hub.Broadcast(websocket.TypeStatus, status)
}

func (s *MonitorService) Status() models.MonitorStatus {
	return s.engine.CurrentStatus()
}

func (s *MonitorService) Latest() []models.LatestValue {
	return s.latest.Snapshot()
}

// Window returns the channel samples of the last period. When memory holds
// nothing for the period (after a restart) the database is consulted.
func (s *MonitorService) Window(ctx context.Context, channel models.Channel, period time.Duration) ([]models.Sample, error) {
	now := s.now()
	start := now.Add(-period)

	samples := s.store.Window(channel, start)
	if len(samples) > 0 || s.samples == nil {
		return samples, nil
	}

	stored, err := s.samples.Range(ctx, channel, start, now.Add(time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}
	return stored, nil
}

func (s *MonitorService) ResetSignal(signal string) (models.SignalStatus, error) {
	st, err := s.engine.Reset(signal)
	if err != nil {
		return st, err
	}
	s.log.Info("Signal %s reset", signal)
	s.hub.Broadcast(websocket.TypeStatus, s.engine.CurrentStatus())
	return st, nil
}

func (s *MonitorService) SetSignalEnabled(signal string, enabled bool) (models.SignalStatus, error) {
	st, err := s.engine.SetEnabled(signal, enabled)
	if err != nil {
		return st, err
	}
	s.log.Info("Signal %s enabled=%t", signal, enabled)
	s.hub.Broadcast(websocket.TypeStatus, s.engine.CurrentStatus())
	return st, nil
}

// DataHealthy reports whether the device has been heard from within the timeout.
func (s *MonitorService) DataHealthy() bool {
	return !s.engine.CurrentStatus().Watchdog.Stale
}
