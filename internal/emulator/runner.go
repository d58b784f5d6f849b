package emulator

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"AlcoMonitorAPI/internal/logger"
)

// Publisher sends a payload to a topic relative to the account prefix.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type Runner struct {
	device    *Device
	publisher Publisher
	log       *logger.Logger
	interval  time.Duration
	rng       *rand.Rand
}

// NewRunner builds a runner. A zero seed picks a random one.
func NewRunner(device *Device, publisher Publisher, interval time.Duration, seed int64, log *logger.Logger) *Runner {
	if seed == 0 {
		seed = rand.Int64()
	}
	return &Runner{
		device:    device,
		publisher: publisher,
		log:       log.Named("emulator"),
		interval:  interval,
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
	}
}

// HandleMessage is an mqtt.MessageHandler for the command topics.
func (r *Runner) HandleMessage(topic string, payload []byte) error {
	before := r.device.WorkState()
	if err := r.device.HandleCommand(topic, string(payload)); err != nil {
		r.log.Warn("Rejected command %s=%q: %v", topic, payload, err)
		return err
	}
	if after := r.device.WorkState(); after != before {
		r.log.Info("Work mode changed: %s -> %s", before, after)
	} else {
		r.log.Info("Applied command %s=%s", topic, payload)
	}
	return nil
}

// Run steps and publishes every interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Emulator started, publishing every %v", r.interval)
	r.publish(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Emulator stopped")
			return nil
		case <-ticker.C:
			r.device.Step(r.rng)
			r.publish(ctx)
		}
	}
}

func (r *Runner) publish(ctx context.Context) {
	failed := 0
	var lastErr error
	for _, reading := range r.device.Snapshot() {
		if err := r.publisher.Publish(ctx, reading.Topic, []byte(reading.Payload)); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		r.log.Warn("Failed to publish %d readings: %v", failed, lastErr)
		return
	}
	r.log.Debug("Published snapshot (work mode %s)", r.device.WorkState())
}
