package mqtt

import (
	"fmt"
	"log/slog"
	"os"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker is an in-process MQTT broker for the emulator and tests.
type Broker struct {
	server  *mochi.Server
	address string
}

type BrokerConfig struct {
	Address string
	// Username and Password restrict access when set; otherwise every client is allowed.
	Username string
	Password string
}

func StartBroker(cfg BrokerConfig) (*Broker, error) {
	server := mochi.New(&mochi.Options{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})

	var err error
	if cfg.Username == "" {
		err = server.AddHook(new(auth.AllowHook), nil)
	} else {
		err = server.AddHook(new(auth.Hook), &auth.Options{
			Ledger: &auth.Ledger{
				Auth: auth.AuthRules{
					{
						Username: auth.RString(cfg.Username),
						Password: auth.RString(cfg.Password),
						Allow:    true,
					},
				},
			},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Type:    "tcp",
		Address: cfg.Address,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}

	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("failed to start broker: %w", err)
	}

	return &Broker{server: server, address: cfg.Address}, nil
}

func (b *Broker) Address() string {
	return b.address
}

func (b *Broker) Close() error {
	return b.server.Close()
}
