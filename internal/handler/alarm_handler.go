package handler

import (
	"context"
	"net/http"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"

	"github.com/gorilla/mux"
)

type AlarmHistory interface {
	History(ctx context.Context, limit, offset int) ([]models.Alarm, error)
}

type AlarmHandler struct {
	alarms AlarmHistory
	log    *logger.Logger
}

func NewAlarmHandler(alarms AlarmHistory, log *logger.Logger) *AlarmHandler {
	return &AlarmHandler{
		alarms: alarms,
		log:    log,
	}
}

func (h *AlarmHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alarms", h.GetAlarms).Methods("GET")
}

func (h *AlarmHandler) GetAlarms(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50, 1, 1000)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alarms, err := h.alarms.History(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("Failed to get alarm history: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get alarm history")
		return
	}
	if alarms == nil {
		alarms = []models.Alarm{}
	}

	respondJSON(w, http.StatusOK, alarms)
}
