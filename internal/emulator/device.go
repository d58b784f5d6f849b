// Package emulator simulates an alco ESP controller on the broker: it
// publishes plausible readings and applies the commands the monitor sends.
package emulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"AlcoMonitorAPI/internal/models"
)

var (
	ErrUnknownTopic     = errors.New("unknown command topic")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// Reading is one published topic/payload pair.
type Reading struct {
	Topic   string
	Payload string
}

// statusKeys are the read-only values, in publish order.
var statusKeys = []string{
	"term_c",
	"term_k",
	"term_d",
	"power",
	"press_a",
	"term_v",
	"term_vent",
	"count_vent",
	"num_error",
}

func initialValues() map[string]float64 {
	return map[string]float64{
		"term_c":     58.0,
		"term_k":     59.0,
		"term_d":     58.5,
		"power":      0,
		"press_a":    760.0,
		"term_v":     0,
		"term_vent":  30.0,
		"count_vent": 0,
		"num_error":  0,

		"term_c_max":  78.8,
		"term_c_min":  78.2,
		"otbor_g_1":   15,
		"otbor_t":     35,
		"term_d_m":    95.0,
		"press_c_m":   800.0,
		"term_k_m":    100.0,
		"term_nasos":  50.0,
		"power_m":     2000.0,
		"otbor":       0,
		"time_stop":   300,
		"otbor_minus": 1,
		"min_otb":     60,
		"sek_otb":     2,
		"otbor_g_2":   10,
		"delta_t":     0.5,
	}
}

// Device is the emulated controller state. It is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	values map[string]float64
	work   models.WorkState
}

func NewDevice() *Device {
	return &Device{
		values: initialValues(),
		work:   models.WorkStop,
	}
}

func (d *Device) WorkState() models.WorkState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.work
}

// Value returns a numeric state key.
func (d *Device) Value(key string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[key]
	return v, ok
}

// HandleCommand applies one command received on a topic relative to the
// account prefix. Repeating the current value is a no-op.
func (d *Device) HandleCommand(topic, payload string) error {
	payload = strings.TrimSpace(payload)

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case topic == models.TopicWorkMode:
		code, err := strconv.Atoi(payload)
		if err != nil {
			return fmt.Errorf("%w: work mode %q", ErrInvalidPayload, payload)
		}
		d.work = models.WorkState(code)
		return nil

	case topic == models.TopicRazgonCmd:
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPayload, topic, payload)
		}
		d.values["term_k_m"] = v
		return nil

	case strings.HasSuffix(topic, "_new"):
		name := strings.TrimSuffix(topic, "_new")
		if !models.IsCommandable(name) {
			return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
		}
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPayload, topic, payload)
		}
		d.values[name] = v
		return nil
	}

	return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// CommandTopics lists every topic the device listens on.
func CommandTopics() []string {
	topics := []string{models.TopicWorkMode, models.TopicRazgonCmd}
	for _, p := range models.CommandableParameters {
		topics = append(topics, p+"_new")
	}
	return topics
}

// Snapshot returns every published key, flag_otb included. The internal
// work code is never published.
func (d *Device) Snapshot() []Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Reading, 0, len(statusKeys)+1+len(models.CommandableParameters))
	for _, k := range statusKeys {
		out = append(out, Reading{Topic: k, Payload: formatValue(d.values[k])})
	}
	out = append(out, Reading{Topic: models.TopicWorkFlag, Payload: d.work.String()})
	for _, k := range models.CommandableParameters {
		out = append(out, Reading{Topic: k, Payload: formatValue(d.values[k])})
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Step advances the simulation by one publish period. The drift is a rough
// per-mode random walk, not a thermal model.
func (d *Device) Step(rng *rand.Rand) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := d.values
	mode := d.work
	taking := mode == models.WorkOtborTela || mode == models.WorkOtborGolovDrip
	idle := mode == models.WorkStop || mode == models.WorkOtborOff

	switch {
	case mode == models.WorkRazgon:
		v["power"] = v["power_m"] + uniform(rng, -50, 50)
	case taking:
		v["power"] = v["power_m"]*0.9 + uniform(rng, -50, 50)
	default:
		v["power"] = 0
	}
	v["power"] = math.Max(0, v["power"])

	v["press_a"] += uniform(rng, -0.1, 0.1)

	switch mode {
	case models.WorkOtborGolovDrip:
		v["otbor"] = v["otbor_g_1"]
	case models.WorkOtborTela:
		v["otbor"] = v["otbor_t"]
	default:
		v["otbor"] = 0
	}

	var dk float64
	switch {
	case mode == models.WorkRazgon:
		dk = uniform(rng, 2.0, 5.0)
	case taking && v["term_k"] < 98:
		dk = uniform(rng, 0.05, 0.3)
	case taking:
		dk = uniform(rng, -0.05, 0.05)
	case idle:
		dk = uniform(rng, -0.2, 0.05)
	default:
		dk = uniform(rng, -0.1, 0.1)
	}
	v["term_k"] = clamp(v["term_k"]+dk, 20, 102)

	v["term_c"] += d.columnDrift(rng, mode, idle)
	v["term_d"] += d.deflegmatorDrift(rng, mode, taking, idle)
}

func (d *Device) columnDrift(rng *rand.Rand, mode models.WorkState, idle bool) float64 {
	v := d.values
	k, c := v["term_k"], v["term_c"]

	// warming follows the cube until it is hot enough for the take-off band
	warming := func() float64 {
		if k > c+1 {
			return uniform(rng, 0.1, 0.3)
		}
		return uniform(rng, -0.05, 0.05)
	}

	switch {
	case mode == models.WorkRazgon:
		return (k - c) * 0.9
	case mode == models.WorkOtborGolovDrip:
		if k <= 65 {
			return warming()
		}
		switch {
		case c < 70:
			return uniform(rng, 0.1, 0.4)
		case c > 78:
			return uniform(rng, -0.3, -0.1)
		}
		return uniform(rng, -0.1, 0.1)
	case mode == models.WorkOtborTela:
		if k <= 78 {
			return warming()
		}
		switch {
		case c < v["term_c_min"]-0.2:
			return uniform(rng, 0.05, 0.2)
		case c > v["term_c_max"]+0.2:
			return uniform(rng, -0.2, -0.05)
		}
		return uniform(rng, -0.05, 0.05)
	case idle:
		if k < c-1 && c > 18 {
			return uniform(rng, -0.15, -0.05)
		}
		return uniform(rng, -0.1, 0.05)
	}
	return uniform(rng, -0.1, 0.1)
}

func (d *Device) deflegmatorDrift(rng *rand.Rand, mode models.WorkState, taking, idle bool) float64 {
	c, dd := d.values["term_c"], d.values["term_d"]

	switch {
	case mode == models.WorkRazgon:
		if c > dd {
			return (c - dd) * 0.8
		}
		return uniform(rng, -0.1, 0.1)
	case taking:
		target := c - uniform(rng, 0.3, 0.8)
		return (target - dd) * 0.4
	case idle:
		if c < dd-0.5 && dd > 18 {
			return uniform(rng, -0.15, -0.05)
		}
		return uniform(rng, -0.1, 0.05)
	}
	return uniform(rng, -0.1, 0.1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
