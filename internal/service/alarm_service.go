package service

import (
	"context"
	"time"

	"AlcoMonitorAPI/internal/alarm"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/metrics"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/repository"
	"AlcoMonitorAPI/internal/websocket"

	"github.com/google/uuid"
)

const (
	DefaultAlarmQueueSize = 64
	alarmHistorySize      = 100
)

// Broadcaster pushes live messages to connected dashboards.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{})
}

// IAlarmService is the alarm sink plus its history.
type IAlarmService interface {
	alarm.Sink
	History(ctx context.Context, limit, offset int) ([]models.Alarm, error)
}

// AlarmService turns engine notifications into stored and pushed alarms.
// Notify only enqueues; Run does the slow work.
type AlarmService struct {
	repo    repository.IAlarmRepository
	hub     Broadcaster
	metrics *metrics.Metrics
	log     *logger.Logger
	queue   chan alarm.Notification
	history *alarmRing
}

// NewAlarmService builds the service. repo may be nil when persistence is off.
func NewAlarmService(
	repo repository.IAlarmRepository,
	hub Broadcaster,
	m *metrics.Metrics,
	log *logger.Logger,
	queueSize int,
) *AlarmService {
	if queueSize <= 0 {
		queueSize = DefaultAlarmQueueSize
	}
	return &AlarmService{
		repo:    repo,
		hub:     hub,
		metrics: m,
		log:     log.Named("alarms"),
		queue:   make(chan alarm.Notification, queueSize),
		history: newAlarmRing(alarmHistorySize),
	}
}

func (s *AlarmService) Notify(n alarm.Notification) {
	select {
	case s.queue <- n:
	default:
		s.log.Warn("Alarm queue full, dropping %s alarm: %s", n.Signal, n.Message)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (s *AlarmService) Run(ctx context.Context) {
	for {
		select {
		case n := <-s.queue:
			s.handle(ctx, n)
		case <-ctx.Done():
			for {
				select {
				case n := <-s.queue:
					s.handle(context.Background(), n)
				default:
					return
				}
			}
		}
	}
}

func (s *AlarmService) handle(ctx context.Context, n alarm.Notification) {
	a := models.Alarm{
		ID:        uuid.NewString(),
		Signal:    n.Signal,
		Message:   n.Message,
		Value:     n.Value,
		Threshold: n.Threshold,
		CreatedAt: n.At,
	}

	s.log.Warn("ALARM [%s] %s", a.Signal, a.Message)
	s.history.add(a)
	s.metrics.Alarms.WithLabelValues(a.Signal).Inc()

	if s.repo != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.repo.Create(saveCtx, &a); err != nil {
			s.log.Error("Failed to persist alarm %s: %v", a.ID, err)
		}
		cancel()
	}

	s.hub.Broadcast(websocket.TypeAlarm, a)
}

// History returns alarms newest first. Without a repository it pages
// through the in-memory ring of recent alarms.
func (s *AlarmService) History(ctx context.Context, limit, offset int) ([]models.Alarm, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	if s.repo != nil {
		return s.repo.List(ctx, limit, offset)
	}

	recent := s.history.newestFirst()
	if offset >= len(recent) {
		return []models.Alarm{}, nil
	}
	end := offset + limit
	if end > len(recent) {
		end = len(recent)
	}
	return recent[offset:end], nil
}

// Recent returns up to n of the latest alarms held in memory.
func (s *AlarmService) Recent(n int) []models.Alarm {
	recent := s.history.newestFirst()
	if n > 0 && n < len(recent) {
		recent = recent[:n]
	}
	return recent
}
