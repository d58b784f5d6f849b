package service

import (
	"context"
	"fmt"
	"sync"

	"AlcoMonitorAPI/internal/alarm"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/websocket"
)

// SettingsStore persists operator settings.
type SettingsStore interface {
	Save(s models.Settings) error
}

type SettingsService struct {
	mu     sync.Mutex
	engine *alarm.Engine
	store  SettingsStore
	hub    Broadcaster
	log    *logger.Logger
}

func NewSettingsService(engine *alarm.Engine, store SettingsStore, hub Broadcaster, log *logger.Logger) *SettingsService {
	return &SettingsService{
		engine: engine,
		store:  store,
		hub:    hub,
		log:    log.Named("settings"),
	}
}

func (s *SettingsService) Get() models.Settings {
	return s.engine.Settings()
}

// Update applies new settings, resetting only the signals whose parameters
// changed, and persists them. It returns the names of the reset signals.
func (s *SettingsService) Update(ctx context.Context, settings models.Settings) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(settings)
}

// Patch runs merge on a copy of the current settings and applies the result.
// Concurrent patches are serialized so none of them is lost. An error from
// merge is returned unchanged and nothing is applied.
func (s *SettingsService) Patch(ctx context.Context, merge func(*models.Settings) error) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.engine.Settings()
	if err := merge(&settings); err != nil {
		return nil, err
	}
	return s.apply(settings)
}

func (s *SettingsService) apply(settings models.Settings) ([]string, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	reset, err := s.engine.UpdateSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if len(reset) > 0 {
		s.log.Info("Settings changed, reset signals: %v", reset)
	}

	// The engine already runs on the new values; clients hear about them
	// even if the file write below fails.
	s.hub.Broadcast(websocket.TypeSettings, settings)

	if s.store != nil {
		if err := s.store.Save(settings); err != nil {
			s.log.Error("Settings applied but not saved: %v", err)
			return reset, fmt.Errorf("failed to save settings: %w", err)
		}
	}
	return reset, nil
}
