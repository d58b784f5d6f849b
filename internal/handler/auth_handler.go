package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type Authenticator interface {
	Login(password string) (string, time.Time, error)
}

type AuthHandler struct {
	auth Authenticator
	log  *logger.Logger
}

func NewAuthHandler(auth Authenticator, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/token", h.IssueToken).Methods("POST")
}

type TokenRequest struct {
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, expiresAt, err := h.auth.Login(req.Password)
	switch {
	case errors.Is(err, service.ErrAuthDisabled):
		respondError(w, http.StatusNotFound, "Authentication is disabled")
		return
	case errors.Is(err, service.ErrUnauthorized):
		h.log.Warn("Rejected login from %s", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "Invalid password")
		return
	case err != nil:
		h.log.Error("Failed to issue token: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}
