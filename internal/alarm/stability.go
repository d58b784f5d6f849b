package alarm

import (
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/models"
)

// StabilityGate is the cube temperature the cube must exceed before the
// stability window is computed.
const StabilityGate = 70.0

// StabilitySignal fires once when dT = K - C has stayed within a band of
// delta_t over the last period.
//
// The two channels are published independently, so the last n samples of each
// window are paired by position rather than by timestamp. This is an
// approximation of true time alignment.
type StabilitySignal struct {
	hot       models.Channel
	cold      models.Channel
	armed     bool
	triggered bool
	disabled  bool
	status    models.SignalStatus
}

func NewStabilitySignal(hot, cold models.Channel) *StabilitySignal {
	return &StabilitySignal{
		hot:   hot,
		cold:  cold,
		armed: true,
		status: models.SignalStatus{
			Signal: models.SignalStability,
			State:  models.StateArmed,
			Phase:  models.PhaseWaiting,
		},
	}
}

func (s *StabilitySignal) Name() string { return models.SignalStability }

func (s *StabilitySignal) Armed() bool { return s.armed }

func (s *StabilitySignal) Triggered() bool { return s.triggered }

func (s *StabilitySignal) Status() models.SignalStatus { return s.status }

func (s *StabilitySignal) Reset() {
	s.armed = true
	s.triggered = false
	s.disabled = false
}

func (s *StabilitySignal) Disable() {
	s.armed = false
	s.triggered = false
	s.disabled = true
}

// Spread is the dT statistics over positionally paired samples.
type Spread struct {
	Pairs     int
	Variation float64
	Mean      float64
}

// ComputeSpread pairs the last n = min(len(hot), len(cold)) values of both
// series and returns max(dT)-min(dT) and mean(dT). ok is false when n < 2.
func ComputeSpread(hot, cold []float64) (Spread, bool) {
	n := min(len(hot), len(cold))
	if n < 2 {
		return Spread{Pairs: n}, false
	}

	hot = hot[len(hot)-n:]
	cold = cold[len(cold)-n:]

	lo, hi, sum := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dt := hot[i] - cold[i]
		if i == 0 || dt < lo {
			lo = dt
		}
		if i == 0 || dt > hi {
			hi = dt
		}
		sum += dt
	}

	return Spread{Pairs: n, Variation: hi - lo, Mean: sum / float64(n)}, true
}

func (s *StabilitySignal) Evaluate(now time.Time, latest LatestReader, store WindowReader, deltaT float64, periodSeconds int, sink Sink) {
	s.status.Threshold = deltaT
	s.status.UpdatedAt = now
	s.status.Variation = nil
	s.status.MeanDT = nil
	s.status.Pairs = 0

	if s.disabled {
		s.report(models.StateDisarmed, models.PhaseDisabled, nil, "ΔT: мониторинг отключен")
		return
	}
	if !s.armed {
		s.report(models.StateTriggered, models.PhaseTriggered, nil, "ΔT: мониторинг отключен")
		return
	}

	k, present, err := latest.Float(string(s.hot))
	if !present || err != nil {
		s.report(models.StateArmed, models.PhaseWaiting, nil, "ΔT: ожидание данных Tк...")
		return
	}
	if k <= StabilityGate {
		s.report(models.StateArmed, models.PhaseGated, ptr(k),
			fmt.Sprintf("ΔT: мониторинг (Tк=%.1f°C ≤ %.1f°C)", k, StabilityGate))
		return
	}

	start := now.Add(-time.Duration(periodSeconds) * time.Second)
	spread, ok := ComputeSpread(store.Values(s.hot, start), store.Values(s.cold, start))
	s.status.Pairs = spread.Pairs
	if !ok {
		s.report(models.StateArmed, models.PhaseInsufficient, ptr(k),
			fmt.Sprintf("ΔT: мониторинг (мало данных: %d пар за %dс)", spread.Pairs, periodSeconds))
		return
	}

	s.status.Variation = ptr(spread.Variation)
	s.status.MeanDT = ptr(spread.Mean)

	if spread.Variation <= deltaT {
		s.armed = false
		s.triggered = true

		message := fmt.Sprintf("ВНИМАНИЕ: СТАБИЛЬНО: разброс ΔT (%.2f°C) ≤ %.2f°C за %dс (средняя ΔT=%.2f°C)",
			spread.Variation, deltaT, periodSeconds, spread.Mean)
		s.report(models.StateTriggered, models.PhaseTriggered, ptr(k), message)
		sink.Notify(Notification{
			Signal:    models.SignalStability,
			Message:   message,
			Value:     ptr(spread.Variation),
			Threshold: ptr(deltaT),
			At:        now,
		})
		return
	}

	s.report(models.StateArmed, models.PhaseMonitoring, ptr(k),
		fmt.Sprintf("ΔT: мониторинг (разброс=%.2f°C, порог %.2f°C, средняя ΔT=%.2f°C)",
			spread.Variation, deltaT, spread.Mean))
}

func (s *StabilitySignal) report(state, phase string, value *float64, message string) {
	s.status.State = state
	s.status.Phase = phase
	s.status.Value = value
	s.status.Message = message
}
