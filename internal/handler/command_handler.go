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

type Commander interface {
	WorkStates() []models.WorkStateInfo
	SetWorkMode(ctx context.Context, code int) (*models.Command, error)
	SetHeadsPWM(ctx context.Context, pwm int) (*models.Command, error)
	SetBodyParams(ctx context.Context, req models.BodyParamsRequest) ([]models.Command, error)
	SetRazgonStopTemp(ctx context.Context, temperature float64) (*models.Command, error)
	SetParameter(ctx context.Context, name string, value float64) (*models.Command, error)
	History(ctx context.Context, limit int) ([]models.Command, error)
}

type CommandHandler struct {
	commands Commander
	log      *logger.Logger
}

func NewCommandHandler(commands Commander, log *logger.Logger) *CommandHandler {
	return &CommandHandler{
		commands: commands,
		log:      log,
	}
}

func (h *CommandHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/commands/work-states", h.GetWorkStates).Methods("GET")
	r.HandleFunc("/commands/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/commands/work-mode", h.SetWorkMode).Methods("POST")
	r.HandleFunc("/commands/heads-pwm", h.SetHeadsPWM).Methods("POST")
	r.HandleFunc("/commands/body", h.SetBodyParams).Methods("POST")
	r.HandleFunc("/commands/razgon-stop", h.SetRazgonStopTemp).Methods("POST")
	r.HandleFunc("/commands/parameter", h.SetParameter).Methods("POST")
}

func (h *CommandHandler) GetWorkStates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.commands.WorkStates())
}

func (h *CommandHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50, 1, 1000)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmds, err := h.commands.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrNoPersistence) {
			respondError(w, http.StatusNotFound, "Command history requires the database")
			return
		}
		h.log.Error("Failed to get command history: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get command history")
		return
	}
	if cmds == nil {
		cmds = []models.Command{}
	}

	respondJSON(w, http.StatusOK, cmds)
}

func (h *CommandHandler) SetWorkMode(w http.ResponseWriter, r *http.Request) {
	var req models.WorkModeRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := h.commands.SetWorkMode(r.Context(), req.Mode)
	h.respondCommand(w, cmd, err)
}

func (h *CommandHandler) SetHeadsPWM(w http.ResponseWriter, r *http.Request) {
	var req models.HeadsPWMRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := h.commands.SetHeadsPWM(r.Context(), req.PWM)
	h.respondCommand(w, cmd, err)
}

func (h *CommandHandler) SetBodyParams(w http.ResponseWriter, r *http.Request) {
	var req models.BodyParamsRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmds, err := h.commands.SetBodyParams(r.Context(), req)
	if err != nil {
		h.commandError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, cmds)
}

func (h *CommandHandler) SetRazgonStopTemp(w http.ResponseWriter, r *http.Request) {
	var req models.RazgonStopRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := h.commands.SetRazgonStopTemp(r.Context(), req.Temperature)
	h.respondCommand(w, cmd, err)
}

func (h *CommandHandler) SetParameter(w http.ResponseWriter, r *http.Request) {
	var req models.ParameterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	cmd, err := h.commands.SetParameter(r.Context(), req.Name, req.Value)
	h.respondCommand(w, cmd, err)
}

func (h *CommandHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Warn("Invalid request body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *CommandHandler) respondCommand(w http.ResponseWriter, cmd *models.Command, err error) {
	if err != nil {
		h.commandError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, cmd)
}

// commandError maps validation failures to 400 and delivery failures to 503.
func (h *CommandHandler) commandError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidCommand) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("Failed to send command: %v", err)
	respondError(w, http.StatusServiceUnavailable, "Device is unreachable: "+err.Error())
}
