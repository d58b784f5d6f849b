package mqtt

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"AlcoMonitorAPI/internal/config"
	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"distiller/#", "distiller/term_k", true},
		{"distiller/#", "distiller/a/b", true},
		{"distiller/+", "distiller/term_k", true},
		{"distiller/+", "distiller/a/b", false},
		{"distiller/term_k", "distiller/term_k", true},
		{"distiller/term_k", "distiller/term_c", false},
		{"other/#", "distiller/term_k", false},
		{"#", "anything/at/all", true},
		{"distiller/term_k/x", "distiller/term_k", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, matchTopic(tt.pattern, tt.topic))
		})
	}
}

func TestFormatPayload(t *testing.T) {
	assert.Equal(t, "78.8", FormatPayload(78.8))
	assert.Equal(t, "35", FormatPayload(35))
}

func freeAddress(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return "127.0.0.1", port
}

type received struct {
	topic   string
	payload string
}

func connectClient(t *testing.T, host string, port int, clientID string) *Client {
	t.Helper()
	cfg := &config.MQTTConfig{
		Broker:         host,
		Port:           port,
		ClientID:       clientID,
		Username:       "distiller",
		Password:       "pineapple",
		QoS:            1,
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}

	c, err := NewClient(ClientConfig{MQTT: cfg, Logger: logger.NewNop()})
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func waitFor(t *testing.T, ch <-chan received, topic string) received {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.topic == topic {
				return msg
			}
		case <-timeout:
			t.Fatalf("no message on %s", topic)
		}
	}
}

func TestClient_WithEmbeddedBroker(t *testing.T) {
	host, port := freeAddress(t)
	broker, err := StartBroker(BrokerConfig{
		Address:  net.JoinHostPort(host, strconv.Itoa(port)),
		Username: "distiller",
		Password: "pineapple",
	})
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	monitor := connectClient(t, host, port, "monitor")
	device := connectClient(t, host, port, "device")

	assert.Equal(t, "distiller/", monitor.Prefix())
	assert.True(t, monitor.IsConnected())

	monitorInbox := make(chan received, 16)
	require.NoError(t, monitor.SubscribeDevice(func(topic string, payload []byte) error {
		monitorInbox <- received{topic, string(payload)}
		return nil
	}))

	deviceInbox := make(chan received, 16)
	for _, topic := range []string{models.TopicWorkMode, "otbor_t_new", models.TopicRazgonCmd} {
		require.NoError(t, device.Subscribe(topic, func(topic string, payload []byte) error {
			deviceInbox <- received{topic, string(payload)}
			return nil
		}))
	}

	ctx := context.Background()

	t.Run("telemetry reaches monitor with relative topic", func(t *testing.T) {
		require.NoError(t, device.Publish(ctx, "term_k", []byte("65.5")))
		msg := waitFor(t, monitorInbox, "term_k")
		assert.Equal(t, "65.5", msg.payload)
	})

	t.Run("work mode", func(t *testing.T) {
		require.NoError(t, monitor.SendWorkMode(ctx, models.WorkRazgon))
		msg := waitFor(t, deviceInbox, models.TopicWorkMode)
		assert.Equal(t, "4", msg.payload)
	})

	t.Run("parameter", func(t *testing.T) {
		require.NoError(t, monitor.SendParameter(ctx, "otbor_t", 35))
		msg := waitFor(t, deviceInbox, "otbor_t_new")
		assert.Equal(t, "35", msg.payload)
	})

	t.Run("razgon stop temperature", func(t *testing.T) {
		require.NoError(t, monitor.SendRazgonStopTemp(ctx, 70.5))
		msg := waitFor(t, deviceInbox, models.TopicRazgonCmd)
		assert.Equal(t, "70.5", msg.payload)
	})

	health := monitor.Health()
	assert.True(t, health.Connected)
	assert.Equal(t, 1, health.Subscriptions)
	assert.NotNil(t, health.LastConnected)
}

func TestClient_PublishWhenDisconnected(t *testing.T) {
	c, err := NewClient(ClientConfig{
		MQTT:   &config.MQTTConfig{Broker: "127.0.0.1", Port: 1, Username: "u"},
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)

	err = c.Publish(context.Background(), "work", []byte("0"))
	assert.Error(t, err)
	assert.False(t, c.Health().Connected)
}

func TestNewClient_RequiresLogger(t *testing.T) {
	_, err := NewClient(ClientConfig{MQTT: &config.MQTTConfig{}})
	assert.Error(t, err)
}
