package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"AlcoMonitorAPI/internal/alarm"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"

	"github.com/gorilla/mux"
)

// DefaultWindowSeconds is the telemetry window returned when ?period is absent.
const DefaultWindowSeconds = 3600

const maxWindowSeconds = 7 * 24 * 3600

type Monitor interface {
	Status() models.MonitorStatus
	Latest() []models.LatestValue
	Window(ctx context.Context, channel models.Channel, period time.Duration) ([]models.Sample, error)
	ResetSignal(signal string) (models.SignalStatus, error)
	SetSignalEnabled(signal string, enabled bool) (models.SignalStatus, error)
}

type MonitorHandler struct {
	monitor Monitor
	log     *logger.Logger
}

func NewMonitorHandler(monitor Monitor, log *logger.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		log:     log,
	}
}

func (h *MonitorHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/latest", h.GetLatest).Methods("GET")
	r.HandleFunc("/telemetry/{channel}", h.GetWindow).Methods("GET")
	r.HandleFunc("/signals/{signal}/reset", h.ResetSignal).Methods("POST")
	r.HandleFunc("/signals/{signal}/enabled", h.SetSignalEnabled).Methods("PUT")
}

func (h *MonitorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Status())
}

func (h *MonitorHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Latest())
}

type WindowResponse struct {
	Channel       models.Channel  `json:"channel"`
	Label         string          `json:"label"`
	PeriodSeconds int             `json:"period_seconds"`
	Samples       []models.Sample `json:"samples"`
}

func (h *MonitorHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	channel, ok := models.ParseChannel(mux.Vars(r)["channel"])
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown channel")
		return
	}

	period, err := queryInt(r, "period", DefaultWindowSeconds, 1, maxWindowSeconds)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, err := h.monitor.Window(r.Context(), channel, time.Duration(period)*time.Second)
	if err != nil {
		h.log.Error("Failed to load %s window: %v", channel, err)
		respondError(w, http.StatusInternalServerError, "Failed to load telemetry")
		return
	}
	if samples == nil {
		samples = []models.Sample{}
	}

	respondJSON(w, http.StatusOK, WindowResponse{
		Channel:       channel,
		Label:         channel.Label(),
		PeriodSeconds: period,
		Samples:       samples,
	})
}

func (h *MonitorHandler) ResetSignal(w http.ResponseWriter, r *http.Request) {
	st, err := h.monitor.ResetSignal(mux.Vars(r)["signal"])
	if err != nil {
		h.signalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

type SignalEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *MonitorHandler) SetSignalEnabled(w http.ResponseWriter, r *http.Request) {
	var req SignalEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Invalid request body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	st, err := h.monitor.SetSignalEnabled(mux.Vars(r)["signal"], *req.Enabled)
	if err != nil {
		h.signalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *MonitorHandler) signalError(w http.ResponseWriter, err error) {
	if errors.Is(err, alarm.ErrUnknownSignal) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Error("Signal update failed: %v", err)
	respondError(w, http.StatusInternalServerError, "Signal update failed")
}
