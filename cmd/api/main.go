package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AlcoMonitorAPI/internal/alarm"
	"AlcoMonitorAPI/internal/config"
	"AlcoMonitorAPI/internal/database"
	"AlcoMonitorAPI/internal/handler"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/metrics"
	"AlcoMonitorAPI/internal/mqtt"
	"AlcoMonitorAPI/internal/recorder"
	"AlcoMonitorAPI/internal/repository"
	"AlcoMonitorAPI/internal/server"
	"AlcoMonitorAPI/internal/service"
	"AlcoMonitorAPI/internal/telemetry"
	"AlcoMonitorAPI/internal/websocket"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Alco ESP Monitor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	hub := websocket.NewHub(log)

	// 3. Optional persistence
	var (
		alarmRepo   repository.IAlarmRepository
		sampleRepo  repository.ISampleRepository
		commandRepo repository.ICommandRepository
		dbPinger    handler.DatabasePinger
		pruners     map[string]repository.Pruner
	)
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to apply database schema: %v", err)
		}
		log.Info("Database connected successfully")

		alarms := repository.NewAlarmRepository(db.DB)
		samples := repository.NewSampleRepository(db.DB)
		alarmRepo = alarms
		sampleRepo = samples
		commandRepo = repository.NewCommandRepository(db.DB)
		dbPinger = db
		pruners = map[string]repository.Pruner{"alarms": alarms, "samples": samples}
	} else {
		log.Info("Database disabled, history is kept in memory only")
	}

	// 4. Settings and evaluation engine
	settingsFile := config.NewSettingsFile(cfg.Monitor.SettingsFile)
	settings, err := settingsFile.Load()
	if err != nil {
		log.Fatal("Failed to load settings: %v", err)
	}

	policy := alarm.OneShot
	if cfg.Monitor.AutoResetThreshold {
		policy = alarm.AutoResetBelowThreshold
	}

	alarmService := service.NewAlarmService(alarmRepo, hub, m, log, cfg.Monitor.AlarmQueueSize)

	store := telemetry.NewStore(cfg.Monitor.StoreCapacity)
	latest := telemetry.NewLatestValues()
	engine, err := alarm.NewEngine(alarm.Config{
		Settings:        settings,
		Policy:          policy,
		DataTimeout:     cfg.Monitor.DataTimeout,
		ObserveDuration: m.ObserveEvaluation,
	}, store, latest, alarmService)
	if err != nil {
		log.Fatal("Failed to create evaluation engine: %v", err)
	}
	log.Info("Engine ready (threshold policy %s)", policy)

	// 5. CSV data logs
	var rec service.Recorder
	if cfg.Recorder.Enabled {
		r, err := recorder.New(cfg.Recorder)
		if err != nil {
			log.Fatal("Failed to open data logs: %v", err)
		}
		defer r.Close()
		rec = r
	}

	monitor, err := service.NewMonitorService(service.MonitorServiceConfig{
		Engine:   engine,
		Store:    store,
		Latest:   latest,
		Recorder: rec,
		Samples:  sampleRepo,
		Hub:      hub,
		Metrics:  m,
		Logger:   log,
		Interval: cfg.Monitor.EvaluationInterval,
	})
	if err != nil {
		log.Fatal("Failed to create monitor: %v", err)
	}

	hub.SetWelcome(func() []websocket.Message {
		now := time.Now()
		return []websocket.Message{
			{Type: websocket.TypeSettings, Payload: engine.Settings(), Timestamp: now},
			{Type: websocket.TypeStatus, Payload: monitor.Status(), Timestamp: now},
		}
	})

	// 6. MQTT Client
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		MQTT:          &cfg.MQTT,
		Logger:        log,
		OnStateChange: m.SetMQTTConnected,
	})
	if err != nil {
		log.Fatal("Failed to create MQTT client: %v", err)
	}
	defer func(mqttClient *mqtt.Client) {
		err := mqttClient.Disconnect()
		if err != nil {
			log.Error("Failed to disconnect MQTT: %v", err)
		}
	}(mqttClient)

	if err := mqttClient.Connect(); err != nil {
		log.Fatal("Failed to connect to MQTT broker: %v", err)
	}

	if err := mqttClient.SubscribeDevice(monitor.HandleMessage); err != nil {
		log.Fatal("Failed to subscribe to device topics: %v", err)
	}
	log.Info("MQTT subscriptions active under %q", mqttClient.Prefix())

	// 7. Initialize Services
	settingsService := service.NewSettingsService(engine, settingsFile, hub, log)
	commandService := service.NewCommandService(mqttClient, commandRepo, m, log)
	reportService := service.NewReportService(monitor, alarmService, cfg.Server.ReportFontPath, log)
	authService := service.NewAuthService(cfg.Security)

	// 8. Initialize Handlers
	handlers := server.Handlers{
		Monitor:   handler.NewMonitorHandler(monitor, log),
		Settings:  handler.NewSettingsHandler(settingsService, log),
		Commands:  handler.NewCommandHandler(commandService, log),
		Alarms:    handler.NewAlarmHandler(alarmService, log),
		Reports:   handler.NewReportHandler(reportService, log),
		Auth:      handler.NewAuthHandler(authService, log),
		Health:    handler.NewHealthHandler(dbPinger, mqttClient, monitor, log),
		WebSocket: hub.ServeWs,
		Metrics:   m.Handler(),
	}
	if authService.Enabled() {
		handlers.Validator = authService
	}

	// 9. Start everything
	srv := server.New(cfg, log)
	srv.RegisterHandlers(ctx, handlers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		alarmService.Run(gctx)
		return nil
	})
	g.Go(func() error {
		monitor.Start(gctx)
		return nil
	})
	if pruners != nil {
		retention := service.NewRetentionService(cfg.Database.Retention, pruners, log)
		g.Go(func() error {
			retention.Run(gctx, time.Hour)
			return nil
		})
	}
	g.Go(srv.Start)

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 10. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Warn("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error: %v", err)
		stop()
		os.Exit(1)
	}

	log.Info("Shutdown complete")
}
