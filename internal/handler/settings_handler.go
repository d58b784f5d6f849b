package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type SettingsManager interface {
	Get() models.Settings
	Patch(ctx context.Context, merge func(*models.Settings) error) ([]string, error)
}

type SettingsHandler struct {
	settings SettingsManager
	log      *logger.Logger
}

func NewSettingsHandler(settings SettingsManager, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		log:      log,
	}
}

func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings", h.UpdateSettings).Methods("PUT")
}

type SettingsUpdateResponse struct {
	Settings     models.Settings `json:"settings"`
	ResetSignals []string        `json:"reset_signals"`
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

// UpdateSettings accepts a partial document: absent fields keep their
// current values. The merge runs inside Patch.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var decodeErr error
	reset, err := h.settings.Patch(r.Context(), func(current *models.Settings) error {
		decodeErr = json.NewDecoder(r.Body).Decode(current)
		return decodeErr
	})
	if err != nil {
		switch {
		case decodeErr != nil:
			h.log.Warn("Invalid request body: %v", decodeErr)
			respondError(w, http.StatusBadRequest, "Invalid request body")
		case errors.Is(err, service.ErrInvalidSettings):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("Failed to update settings: %v", err)
			respondError(w, http.StatusInternalServerError, "Settings applied but not saved")
		}
		return
	}
	if reset == nil {
		reset = []string{}
	}

	respondJSON(w, http.StatusOK, SettingsUpdateResponse{
		Settings:     h.settings.Get(),
		ResetSignals: reset,
	})
}
