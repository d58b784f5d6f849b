// internal/service/command_service.go

package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"AlcoMonitorAPI/internal/logger"
	"AlcoMonitorAPI/internal/metrics"
	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/mqtt"
	"AlcoMonitorAPI/internal/repository"

	"github.com/google/uuid"
)

// CommandPublisher delivers commands to the device.
type CommandPublisher interface {
	SendWorkMode(ctx context.Context, state models.WorkState) error
	SendParameter(ctx context.Context, name string, value float64) error
	SendRazgonStopTemp(ctx context.Context, temperature float64) error
}

type CommandService struct {
	publisher   CommandPublisher
	commandRepo repository.ICommandRepository
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time
}

// NewCommandService builds the service. commandRepo may be nil when
// persistence is off.
func NewCommandService(
	publisher CommandPublisher,
	commandRepo repository.ICommandRepository,
	m *metrics.Metrics,
	log *logger.Logger,
) *CommandService {
	return &CommandService{
		publisher:   publisher,
		commandRepo: commandRepo,
		metrics:     m,
		log:         log.Named("commands"),
		now:         time.Now,
	}
}

func (s *CommandService) WorkStates() []models.WorkStateInfo {
	return models.WorkStates()
}

func (s *CommandService) SetWorkMode(ctx context.Context, code int) (*models.Command, error) {
	state, err := models.ParseWorkState(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	s.log.Info("Work mode requested: %s", state)
	return s.issue(ctx, models.TopicWorkMode, strconv.Itoa(code), func(ctx context.Context) error {
		return s.publisher.SendWorkMode(ctx, state)
	})
}

// SetHeadsPWM sets the heads take-off valve PWM.
func (s *CommandService) SetHeadsPWM(ctx context.Context, pwm int) (*models.Command, error) {
	if err := validatePWM(pwm); err != nil {
		return nil, err
	}
	return s.sendParameter(ctx, "otbor_g_1", float64(pwm))
}

// SetBodyParams sends the body take-off window and PWM as three commands:
// stop temperature, start temperature, PWM. It stops at the first failure.
func (s *CommandService) SetBodyParams(ctx context.Context, req models.BodyParamsRequest) ([]models.Command, error) {
	if err := validateTemperature("t_start", req.TStart); err != nil {
		return nil, err
	}
	if err := validateTemperature("t_stop", req.TStop); err != nil {
		return nil, err
	}
	if req.TStart >= req.TStop {
		return nil, fmt.Errorf("%w: t_start (%v) must be below t_stop (%v)", ErrInvalidCommand, req.TStart, req.TStop)
	}
	if err := validatePWM(req.PWM); err != nil {
		return nil, err
	}

	steps := []struct {
		name  string
		value float64
	}{
		{"term_c_max", req.TStop},
		{"term_c_min", req.TStart},
		{"otbor_t", float64(req.PWM)},
	}

	sent := make([]models.Command, 0, len(steps))
	for _, step := range steps {
		cmd, err := s.sendParameter(ctx, step.name, step.value)
		if cmd != nil {
			sent = append(sent, *cmd)
		}
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (s *CommandService) SetRazgonStopTemp(ctx context.Context, temperature float64) (*models.Command, error) {
	if err := validateTemperature("temperature", temperature); err != nil {
		return nil, err
	}
	return s.issue(ctx, models.TopicRazgonCmd, mqtt.FormatPayload(temperature), func(ctx context.Context) error {
		return s.publisher.SendRazgonStopTemp(ctx, temperature)
	})
}

// SetParameter writes any commandable device parameter.
func (s *CommandService) SetParameter(ctx context.Context, name string, value float64) (*models.Command, error) {
	if !models.IsCommandable(name) {
		return nil, fmt.Errorf("%w: unknown parameter %q", ErrInvalidCommand, name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: value must be finite", ErrInvalidCommand)
	}
	return s.sendParameter(ctx, name, value)
}

func (s *CommandService) sendParameter(ctx context.Context, name string, value float64) (*models.Command, error) {
	return s.issue(ctx, name+mqtt.ParameterSuffix, mqtt.FormatPayload(value), func(ctx context.Context) error {
		return s.publisher.SendParameter(ctx, name, value)
	})
}

func (s *CommandService) issue(ctx context.Context, topic, payload string, send func(context.Context) error) (*models.Command, error) {
	cmd := &models.Command{
		ID:       uuid.NewString(),
		Topic:    topic,
		Payload:  payload,
		Status:   models.CommandPending,
		IssuedAt: s.now(),
	}

	if s.commandRepo != nil {
		if err := s.commandRepo.Create(ctx, cmd); err != nil {
			s.log.Error("Failed to record command %s: %v", cmd.ID, err)
		}
	}

	if err := send(ctx); err != nil {
		s.log.Error("Failed to send %s=%s: %v", topic, payload, err)
		cmd.Status = models.CommandFailed
		cmd.Error = err.Error()
		s.updateStatus(ctx, cmd)
		s.metrics.Commands.WithLabelValues(models.CommandFailed).Inc()
		return cmd, fmt.Errorf("failed to send command: %w", err)
	}

	sentAt := s.now()
	cmd.Status = models.CommandSent
	cmd.SentAt = &sentAt
	s.updateStatus(ctx, cmd)
	s.metrics.Commands.WithLabelValues(models.CommandSent).Inc()

	s.log.Info("Command sent: %s=%s", topic, payload)
	return cmd, nil
}

// History returns the most recent commands, newest first.
func (s *CommandService) History(ctx context.Context, limit int) ([]models.Command, error) {
	if s.commandRepo == nil {
		return nil, ErrNoPersistence
	}
	cmds, err := s.commandRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	return cmds, nil
}

func (s *CommandService) updateStatus(ctx context.Context, cmd *models.Command) {
	if s.commandRepo == nil {
		return
	}
	if err := s.commandRepo.UpdateStatus(ctx, cmd.ID, cmd.Status, cmd.Error, cmd.SentAt); err != nil {
		s.log.Error("Failed to update command %s: %v", cmd.ID, err)
	}
}

func validatePWM(pwm int) error {
	if pwm < 0 || pwm > models.MaxPWM {
		return fmt.Errorf("%w: pwm must be between 0 and %d", ErrInvalidCommand, models.MaxPWM)
	}
	return nil
}

func validateTemperature(field string, t float64) error {
	if math.IsNaN(t) || t < models.MinTemperature || t > models.MaxTemperature {
		return fmt.Errorf("%w: %s must be between %v and %v", ErrInvalidCommand, field, models.MinTemperature, models.MaxTemperature)
	}
	return nil
}
