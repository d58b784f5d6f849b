package mqtt

import (
	"context"
	"fmt"
	"strconv"

	"AlcoMonitorAPI/internal/models"
)

// ParameterSuffix turns a device parameter name into its command topic.
const ParameterSuffix = "_new"

// FormatPayload renders a command value the way the device firmware parses it.
func FormatPayload(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) SendWorkMode(ctx context.Context, state models.WorkState) error {
	c.log.Info("Sending work mode: %d (%s)", int(state), state)

	if err := c.Publish(ctx, models.TopicWorkMode, []byte(strconv.Itoa(int(state)))); err != nil {
		return fmt.Errorf("failed to send work mode: %w", err)
	}
	return nil
}

// SendParameter publishes value to "<name>_new".
func (c *Client) SendParameter(ctx context.Context, name string, value float64) error {
	topic := name + ParameterSuffix
	payload := FormatPayload(value)

	c.log.Info("Sending parameter %s=%s", topic, payload)

	if err := c.Publish(ctx, topic, []byte(payload)); err != nil {
		return fmt.Errorf("failed to send parameter %s: %w", name, err)
	}
	return nil
}

func (c *Client) SendRazgonStopTemp(ctx context.Context, temperature float64) error {
	payload := FormatPayload(temperature)

	c.log.Info("Sending razgon stop temperature: %s", payload)

	if err := c.Publish(ctx, models.TopicRazgonCmd, []byte(payload)); err != nil {
		return fmt.Errorf("failed to send razgon stop temperature: %w", err)
	}
	return nil
}

func (c *Client) SendRaw(ctx context.Context, topic string, payload []byte) error {
	c.log.Debug("Sending raw command to %s (size: %d bytes)", topic, len(payload))

	if err := c.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("failed to send raw command: %w", err)
	}
	return nil
}
