package main

import (
	"context"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"AlcoMonitorAPI/internal/config"
	"AlcoMonitorAPI/internal/emulator"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/mqtt"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	if cfg.MQTT.Username == "" {
		log.Fatal("MQTT_USERNAME is required (device topics live under <username>/)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Emulator.EmbeddedBroker {
		broker, err := mqtt.StartBroker(mqtt.BrokerConfig{
			Address:  cfg.Emulator.BrokerAddress,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			log.Fatal("Failed to start embedded broker: %v", err)
		}
		defer broker.Close()

		host, port, err := net.SplitHostPort(broker.Address())
		if err != nil {
			log.Fatal("Invalid broker address %q: %v", broker.Address(), err)
		}
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		cfg.MQTT.Broker = host
		if cfg.MQTT.Port, err = strconv.Atoi(port); err != nil {
			log.Fatal("Invalid broker port %q: %v", port, err)
		}
		log.Info("Embedded MQTT broker listening on %s", broker.Address())
	}

	cfg.MQTT.ClientID = cfg.Emulator.ClientID

	client, err := mqtt.NewClient(mqtt.ClientConfig{
		MQTT:   &cfg.MQTT,
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create MQTT client: %v", err)
	}
	if err := client.Connect(); err != nil {
		log.Fatal("Failed to connect to MQTT broker: %v", err)
	}
	defer client.Disconnect()

	device := emulator.NewDevice()
	runner := emulator.NewRunner(device, client, cfg.Emulator.PublishInterval, cfg.Emulator.Seed, log)

	for _, topic := range emulator.CommandTopics() {
		if err := client.Subscribe(topic, runner.HandleMessage); err != nil {
			log.Fatal("Failed to subscribe to %s: %v", topic, err)
		}
	}
	log.Info("Device emulator running under %q, press Ctrl+C to stop", client.Prefix())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Emulator stopped with error: %v", err)
	}
}
