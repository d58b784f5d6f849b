package alarm

import (
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/models"
)

// ThresholdPolicy decides what a triggered threshold signal does when the
// value falls back below its threshold.
type ThresholdPolicy int

const (
	// OneShot stays triggered until an explicit reset.
	OneShot ThresholdPolicy = iota
	// AutoResetBelowThreshold silently re-arms once the value drops below threshold.
	AutoResetBelowThreshold
)

func (p ThresholdPolicy) String() string {
	switch p {
	case OneShot:
		return "one-shot"
	case AutoResetBelowThreshold:
		return "auto-reset-below-threshold"
	default:
		return fmt.Sprintf("ThresholdPolicy(%d)", int(p))
	}
}

// ThresholdSignal fires once when the bound channel reaches threshold (inclusive).
type ThresholdSignal struct {
	name      string
	label     string
	channel   models.Channel
	policy    ThresholdPolicy
	armed     bool
	triggered bool
	disabled  bool
	status    models.SignalStatus
}

func NewThresholdSignal(name, label string, ch models.Channel, policy ThresholdPolicy) *ThresholdSignal {
	return &ThresholdSignal{
		name:    name,
		label:   label,
		channel: ch,
		policy:  policy,
		armed:   true,
		status: models.SignalStatus{
			Signal: name,
			State:  models.StateArmed,
			Phase:  models.PhaseWaiting,
		},
	}
}

func (s *ThresholdSignal) Name() string { return s.name }

func (s *ThresholdSignal) Armed() bool { return s.armed }

func (s *ThresholdSignal) Triggered() bool { return s.triggered }

func (s *ThresholdSignal) Status() models.SignalStatus { return s.status }

// Reset re-arms the signal. The caller re-evaluates.
func (s *ThresholdSignal) Reset() {
	s.armed = true
	s.triggered = false
	s.disabled = false
}

// Disable puts the signal in the disarmed state until Reset.
func (s *ThresholdSignal) Disable() {
	s.armed = false
	s.triggered = false
	s.disabled = true
}

// Evaluate runs one step of the state machine. It returns true when a
// triggered signal re-armed itself under AutoResetBelowThreshold; the status
// is left for the caller's follow-up evaluation.
func (s *ThresholdSignal) Evaluate(now time.Time, latest LatestReader, threshold float64, sink Sink) bool {
	s.status.Threshold = threshold
	s.status.UpdatedAt = now

	if s.disabled {
		s.report(models.StateDisarmed, models.PhaseDisabled, nil,
			fmt.Sprintf("%s: мониторинг отключен", s.label))
		return false
	}

	value, present, err := latest.Float(string(s.channel))
	hasValue := present && err == nil

	if !s.armed {
		if s.policy == AutoResetBelowThreshold && hasValue && value < threshold {
			s.Reset()
			return true
		}
		var v *float64
		if hasValue {
			v = ptr(value)
		}
		s.report(models.StateTriggered, models.PhaseTriggered, v,
			fmt.Sprintf("%s: мониторинг отключен", s.label))
		return false
	}

	if !hasValue {
		s.report(models.StateArmed, models.PhaseWaiting, nil,
			fmt.Sprintf("%s: ожидание данных (порог %.1f°C)", s.label, threshold))
		return false
	}

	if value >= threshold {
		s.armed = false
		s.triggered = true

		message := fmt.Sprintf("ВНИМАНИЕ: %s (%.1f°C) ≥ %.1f°C", s.label, value, threshold)
		s.report(models.StateTriggered, models.PhaseTriggered, ptr(value), message)
		sink.Notify(Notification{
			Signal:    s.name,
			Message:   message,
			Value:     ptr(value),
			Threshold: ptr(threshold),
			At:        now,
		})
		return false
	}

	s.report(models.StateArmed, models.PhaseMonitoring, ptr(value),
		fmt.Sprintf("Мониторинг (%s %.1f°C, порог %.1f°C)", s.label, value, threshold))
	return false
}

func (s *ThresholdSignal) report(state, phase string, value *float64, message string) {
	s.status.State = state
	s.status.Phase = phase
	s.status.Value = value
	s.status.Message = message
}
