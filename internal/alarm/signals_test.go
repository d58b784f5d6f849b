package alarm

import (
	"testing"
	"time"

	"AlcoMonitorAPI/internal/models"
	"AlcoMonitorAPI/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingSink struct {
	notes []Notification
}

func (r *recordingSink) Notify(n Notification) { r.notes = append(r.notes, n) }

func (r *recordingSink) count(signal string) int {
	n := 0
	for _, note := range r.notes {
		if note.Signal == signal {
			n++
		}
	}
	return n
}

type countingWindow struct {
	store *telemetry.Store
	calls int
}

func (c *countingWindow) Values(ch models.Channel, start time.Time) []float64 {
	c.calls++
	return c.store.Values(ch, start)
}

func latestWith(t *testing.T, kv ...string) *telemetry.LatestValues {
	t.Helper()
	require.Zero(t, len(kv)%2)
	l := telemetry.NewLatestValues()
	for i := 0; i < len(kv); i += 2 {
		l.Set(kv[i], kv[i+1], t0)
	}
	return l
}

func newKub(policy ThresholdPolicy) *ThresholdSignal {
	return NewThresholdSignal(models.SignalKub, "T куба", models.ChannelCube, policy)
}

func TestThreshold_InclusiveBoundary(t *testing.T) {
	sink := &recordingSink{}
	s := newKub(OneShot)

	s.Evaluate(t0, latestWith(t, "term_k", "69.99"), 70, sink)
	assert.Empty(t, sink.notes)
	assert.Equal(t, models.PhaseMonitoring, s.Status().Phase)

	s.Evaluate(t0, latestWith(t, "term_k", "70"), 70, sink)
	require.Len(t, sink.notes, 1)
	assert.Equal(t, models.StateTriggered, s.Status().State)
	assert.Equal(t, 70.0, *sink.notes[0].Value)
	assert.Equal(t, 70.0, *sink.notes[0].Threshold)
	assert.True(t, s.Triggered())
	assert.False(t, s.Armed(), "triggered implies not armed")
}

func TestThreshold_OneShot(t *testing.T) {
	for _, policy := range []ThresholdPolicy{OneShot, AutoResetBelowThreshold} {
		t.Run(policy.String(), func(t *testing.T) {
			sink := &recordingSink{}
			s := newKub(policy)
			latest := latestWith(t, "term_k", "75")

			for i := 0; i < 5; i++ {
				s.Evaluate(t0.Add(time.Duration(i)*time.Second), latest, 70, sink)
			}
			latest.Set("term_k", "95", t0)
			s.Evaluate(t0.Add(10*time.Second), latest, 70, sink)

			assert.Len(t, sink.notes, 1)
			assert.Equal(t, models.StateTriggered, s.Status().State)
		})
	}
}

func TestThreshold_AbsentIsNotBelowThreshold(t *testing.T) {
	sink := &recordingSink{}
	s := newKub(AutoResetBelowThreshold)

	s.Evaluate(t0, latestWith(t), 70, sink)
	assert.Equal(t, models.StateArmed, s.Status().State)
	assert.Equal(t, models.PhaseWaiting, s.Status().Phase)
	assert.Nil(t, s.Status().Value)

	s.Evaluate(t0, latestWith(t, "term_k", "n/a"), 70, sink)
	assert.Equal(t, models.PhaseWaiting, s.Status().Phase)
	assert.Empty(t, sink.notes)
}

func TestThreshold_AutoResetBelowThreshold(t *testing.T) {
	sink := &recordingSink{}
	s := newKub(AutoResetBelowThreshold)
	latest := latestWith(t, "term_k", "72")

	s.Evaluate(t0, latest, 70, sink)
	require.True(t, s.Triggered())

	latest.Set("term_k", "69.9", t0)
	rearmed := s.Evaluate(t0.Add(time.Second), latest, 70, sink)
	assert.True(t, rearmed)
	assert.True(t, s.Armed())
	assert.False(t, s.Triggered())
	assert.Len(t, sink.notes, 1, "re-arming is silent")

	latest.Set("term_k", "71", t0)
	s.Evaluate(t0.Add(2*time.Second), latest, 70, sink)
	assert.Len(t, sink.notes, 2)
}

func TestThreshold_OneShotPolicyStaysTriggered(t *testing.T) {
	sink := &recordingSink{}
	s := newKub(OneShot)
	latest := latestWith(t, "term_k", "72")

	s.Evaluate(t0, latest, 70, sink)
	latest.Set("term_k", "20", t0)

	assert.False(t, s.Evaluate(t0.Add(time.Second), latest, 70, sink))
	assert.Equal(t, models.StateTriggered, s.Status().State)
	assert.Equal(t, 20.0, *s.Status().Value)
}

func TestThreshold_DisableAndReset(t *testing.T) {
	sink := &recordingSink{}
	s := newKub(AutoResetBelowThreshold)
	latest := latestWith(t, "term_k", "90")

	s.Disable()
	s.Evaluate(t0, latest, 70, sink)
	assert.Empty(t, sink.notes)
	assert.Equal(t, models.StateDisarmed, s.Status().State)
	assert.Equal(t, models.PhaseDisabled, s.Status().Phase)

	s.Reset()
	s.Evaluate(t0, latest, 70, sink)
	assert.Len(t, sink.notes, 1)
}

func TestComputeSpread(t *testing.T) {
	spread, ok := ComputeSpread([]float64{80, 81, 79}, []float64{70, 70.5, 69.5})
	require.True(t, ok)
	assert.Equal(t, 3, spread.Pairs)
	assert.InDelta(t, 1.0, spread.Variation, 1e-9)
	assert.InDelta(t, 10.0, spread.Mean, 1e-9)
}

func TestComputeSpread_PairsLastNPositionally(t *testing.T) {
	spread, ok := ComputeSpread([]float64{1, 2, 3, 90, 91}, []float64{80, 81})
	require.True(t, ok)
	assert.Equal(t, 2, spread.Pairs)
	assert.InDelta(t, 0.0, spread.Variation, 1e-9)
	assert.InDelta(t, 10.0, spread.Mean, 1e-9)
}

func TestComputeSpread_Insufficient(t *testing.T) {
	_, ok := ComputeSpread([]float64{80}, []float64{70, 71, 72})
	assert.False(t, ok)

	spread, ok := ComputeSpread(nil, []float64{70})
	assert.False(t, ok)
	assert.Equal(t, 0, spread.Pairs)
}

func stabilityFixture(t *testing.T, k, c []float64) (*telemetry.LatestValues, *telemetry.Store) {
	t.Helper()
	store := telemetry.NewStore(100)
	for i, v := range k {
		store.Append(models.ChannelCube, t0.Add(time.Duration(i)*time.Second), v)
	}
	for i, v := range c {
		store.Append(models.ChannelColumn, t0.Add(time.Duration(i)*time.Second+500*time.Millisecond), v)
	}
	latest := telemetry.NewLatestValues()
	if len(k) > 0 {
		latest.Set(string(models.ChannelCube), telemetry.FormatValue(k[len(k)-1]), t0)
	}
	return latest, store
}

func TestStability_VarianceThreshold(t *testing.T) {
	k := []float64{80, 81, 79}
	c := []float64{70, 70.5, 69.5}
	now := t0.Add(10 * time.Second)

	t.Run("within band triggers", func(t *testing.T) {
		latest, store := stabilityFixture(t, k, c)
		sink := &recordingSink{}
		s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

		s.Evaluate(now, latest, store, 2.0, 60, sink)
		require.Len(t, sink.notes, 1)
		assert.Equal(t, models.SignalStability, sink.notes[0].Signal)
		assert.InDelta(t, 1.0, *sink.notes[0].Value, 1e-9)
		assert.Equal(t, models.StateTriggered, s.Status().State)
		assert.Contains(t, sink.notes[0].Message, "60с")
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		latest, store := stabilityFixture(t, k, c)
		sink := &recordingSink{}
		s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

		s.Evaluate(now, latest, store, 1.0, 60, sink)
		assert.Len(t, sink.notes, 1)
	})

	t.Run("just below the variation does not trigger", func(t *testing.T) {
		latest, store := stabilityFixture(t, k, c)
		sink := &recordingSink{}
		s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

		s.Evaluate(now, latest, store, 0.99, 60, sink)
		assert.Empty(t, sink.notes)
		assert.Equal(t, models.StateArmed, s.Status().State)
	})

	t.Run("above band keeps monitoring", func(t *testing.T) {
		latest, store := stabilityFixture(t, k, c)
		sink := &recordingSink{}
		s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

		s.Evaluate(now, latest, store, 0.5, 60, sink)
		assert.Empty(t, sink.notes)
		st := s.Status()
		assert.Equal(t, models.StateArmed, st.State)
		assert.Equal(t, models.PhaseMonitoring, st.Phase)
		assert.InDelta(t, 1.0, *st.Variation, 1e-9)
		assert.InDelta(t, 10.0, *st.MeanDT, 1e-9)
		assert.Equal(t, 3, st.Pairs)
	})
}

func TestStability_GateSkipsWindow(t *testing.T) {
	latest, store := stabilityFixture(t, []float64{70, 70, 70}, []float64{60, 60, 60})
	window := &countingWindow{store: store}
	sink := &recordingSink{}
	s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

	s.Evaluate(t0.Add(5*time.Second), latest, window, 10, 60, sink)

	assert.Empty(t, sink.notes)
	assert.Zero(t, window.calls)
	assert.Equal(t, models.PhaseGated, s.Status().Phase)
}

func TestStability_WaitingForCube(t *testing.T) {
	_, store := stabilityFixture(t, nil, []float64{60, 60})
	sink := &recordingSink{}
	s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

	s.Evaluate(t0, telemetry.NewLatestValues(), store, 1, 60, sink)
	assert.Equal(t, models.PhaseWaiting, s.Status().Phase)

	s.Evaluate(t0, latestWith(t, "term_k", "error"), store, 1, 60, sink)
	assert.Equal(t, models.PhaseWaiting, s.Status().Phase)
	assert.Empty(t, sink.notes)
}

func TestStability_InsufficientSamples(t *testing.T) {
	latest, store := stabilityFixture(t, []float64{80, 80, 80}, []float64{70})
	sink := &recordingSink{}
	s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

	s.Evaluate(t0.Add(5*time.Second), latest, store, 10, 60, sink)

	assert.Empty(t, sink.notes)
	assert.Equal(t, models.PhaseInsufficient, s.Status().Phase)
	assert.Equal(t, 1, s.Status().Pairs)
}

func TestStability_WindowExcludesOldSamples(t *testing.T) {
	// the old pair would widen the spread to 20 if it were included
	latest, store := stabilityFixture(t, []float64{100, 80, 80, 80}, []float64{70, 70, 70, 70})
	sink := &recordingSink{}
	s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)

	s.Evaluate(t0.Add(4*time.Second), latest, store, 0.5, 3, sink)

	require.Len(t, sink.notes, 1)
	assert.InDelta(t, 0.0, *sink.notes[0].Value, 1e-9)
}

func TestStability_OneShotUntilReset(t *testing.T) {
	latest, store := stabilityFixture(t, []float64{80, 80, 80}, []float64{70, 70, 70})
	sink := &recordingSink{}
	s := NewStabilitySignal(models.ChannelCube, models.ChannelColumn)
	now := t0.Add(5 * time.Second)

	s.Evaluate(now, latest, store, 0.2, 60, sink)
	s.Evaluate(now, latest, store, 0.2, 60, sink)
	assert.Len(t, sink.notes, 1)

	s.Reset()
	s.Evaluate(now, latest, store, 0.2, 60, sink)
	assert.Len(t, sink.notes, 2)

	s.Disable()
	s.Evaluate(now, latest, store, 0.2, 60, sink)
	assert.Equal(t, models.StateDisarmed, s.Status().State)
	assert.Len(t, sink.notes, 2)
}

func TestWatchdog_FiresOncePerSilence(t *testing.T) {
	sink := &recordingSink{}
	w := NewWatchdog(60*time.Second, t0)

	assert.False(t, w.Check(t0.Add(60*time.Second), sink), "exactly the timeout is not stale")
	assert.True(t, w.Check(t0.Add(61*time.Second), sink))
	assert.False(t, w.Check(t0.Add(120*time.Second), sink))
	assert.Equal(t, 1, sink.count(models.SignalWatchdog))
	assert.True(t, w.Status(t0.Add(120*time.Second)).Stale)

	w.Touch(t0.Add(130 * time.Second))
	assert.False(t, w.Status(t0.Add(131*time.Second)).AlarmActive)
	assert.False(t, w.Check(t0.Add(150*time.Second), sink))
	assert.True(t, w.Check(t0.Add(191*time.Second), sink))
	assert.Equal(t, 2, sink.count(models.SignalWatchdog))
}

func TestWatchdog_DefaultTimeout(t *testing.T) {
	w := NewWatchdog(0, t0)
	assert.Equal(t, DefaultDataTimeout.Seconds(), w.Status(t0).Timeout)
}
