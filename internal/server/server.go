package server

import (
	"context"
	"fmt"
	"net/http"

	"AlcoMonitorAPI/internal/config"
	"AlcoMonitorAPI/internal/handler"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/middleware"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

// Handlers groups everything the router serves. Nil members are skipped.
type Handlers struct {
	Monitor  *handler.MonitorHandler
	Settings *handler.SettingsHandler
	Commands *handler.CommandHandler
	Alarms   *handler.AlarmHandler
	Reports  *handler.ReportHandler
	Auth     *handler.AuthHandler
	Health   *handler.HealthHandler

	WebSocket http.HandlerFunc
	Metrics   http.Handler

	// Validator gates mutating /api/v1 routes. Nil disables authentication.
	Validator middleware.TokenValidator
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()
	log = log.Named("server")

	server := &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

// RegisterHandlers wires routes and middleware. ctx bounds background work
// such as rate limiter pruning.
func (s *Server) RegisterHandlers(ctx context.Context, h Handlers) {
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestLogger(s.log))

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.cfg.Security.EnableRateLimit {
		api.Use(middleware.RateLimit(ctx, s.cfg.Security.RateLimitPerMinute))
	}

	if h.Auth != nil {
		h.Auth.RegisterRoutes(api)
	}

	protected := api.NewRoute().Subrouter()
	if h.Validator != nil {
		protected.Use(middleware.RequireAuth(h.Validator))
		s.log.Info("Mutating routes require a bearer token")
	}

	if h.Monitor != nil {
		h.Monitor.RegisterRoutes(protected)
	}
	if h.Settings != nil {
		h.Settings.RegisterRoutes(protected)
	}
	if h.Commands != nil {
		h.Commands.RegisterRoutes(protected)
	}
	if h.Alarms != nil {
		h.Alarms.RegisterRoutes(protected)
	}
	if h.Reports != nil {
		h.Reports.RegisterRoutes(protected)
	}

	if h.Health != nil {
		h.Health.RegisterRoutes(s.router)
	}
	if h.WebSocket != nil {
		s.router.HandleFunc("/ws", h.WebSocket).Methods("GET")
	}
	if h.Metrics != nil {
		s.router.Handle("/metrics", h.Metrics).Methods("GET")
	}

	// CORS wraps the router so preflight requests are answered before
	// method matching.
	s.httpServer.Handler = middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods)(s.router)

	s.log.Info("All handlers registered")
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
