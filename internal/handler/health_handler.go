package handler

import (
	"context"
	"net/http"
	"time"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"

	"github.com/gorilla/mux"
)

type DatabasePinger interface {
	Health(ctx context.Context) error
}

type BrokerConnection interface {
	IsConnected() bool
}

type DataWatch interface {
	DataHealthy() bool
}

type HealthHandler struct {
	db     DatabasePinger
	broker BrokerConnection
	data   DataWatch
	log    *logger.Logger
	now    func() time.Time
}

// NewHealthHandler builds the handler. db is nil when persistence is off.
func NewHealthHandler(db DatabasePinger, broker BrokerConnection, data DataWatch, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		broker: broker,
		data:   data,
		log:    log,
		now:    time.Now,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) dbHealthy(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	return h.db.Health(ctx)
}

// Health reports degraded when the database or broker is down. Stale device
// data is shown but does not fail the check: a switched-off still is normal.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: h.now(),
	}

	dbErr := h.dbHealthy(ctx)
	response.Services.Database = dbErr == nil
	response.Services.MQTT = h.broker.IsConnected()
	response.Services.Data = h.data.DataHealthy()

	if !response.Services.Database || !response.Services.MQTT {
		response.Status = "degraded"
		h.log.Warn("Health check degraded - DB: %v, MQTT: %v", response.Services.Database, response.Services.MQTT)
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.dbHealthy(ctx)
	mqttConnected := h.broker.IsConnected()

	if dbErr != nil || !mqttConnected {
		h.log.Warn("Readiness check failed - DB error: %v, MQTT connected: %v", dbErr, mqttConnected)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
