// Command discover prints every topic the device publishes under the
// account prefix until interrupted.
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"AlcoMonitorAPI/internal/config"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/mqtt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:     logger.INFO,
		Mode:      logger.MINIMAL,
		UseColors: cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if cfg.MQTT.Username == "" {
		log.Fatal("MQTT_USERNAME is required (device topics live under <username>/)")
	}
	cfg.MQTT.ClientID += "-discover"

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

	var mu sync.Mutex
	seen := make(map[string]bool)
	err = client.SubscribeDevice(func(topic string, payload []byte) error {
		mu.Lock()
		first := !seen[topic]
		seen[topic] = true
		mu.Unlock()

		if first {
			log.Info("new topic %s%s = %s", client.Prefix(), topic, payload)
		} else {
			log.Info("%s%s = %s", client.Prefix(), topic, payload)
		}
		return nil
	})
	if err != nil {
		log.Fatal("Failed to subscribe: %v", err)
	}
	log.Info("Listening on %s#, press Ctrl+C to stop", client.Prefix())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	log.Info("Discovered %d topics", len(seen))
}
