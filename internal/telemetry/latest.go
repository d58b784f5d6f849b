package telemetry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"AlcoMonitorAPI/internal/models"
)

// LatestValues maps every device key to its most recent raw payload.
type LatestValues struct {
	mu     sync.RWMutex
	values map[string]models.LatestValue
}

func NewLatestValues() *LatestValues {
	return &LatestValues{
		values: make(map[string]models.LatestValue),
	}
}

func (l *LatestValues) Set(key, raw string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[key] = models.LatestValue{Key: key, Raw: raw, ReceivedAt: at}
}

// Get returns the raw value and false when key was never set.
func (l *LatestValues) Get(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.values[key]
	return v.Raw, ok
}

// Float returns the value of key parsed as a number.
// present is false when the key was never set; err is set for non-numeric payloads.
func (l *LatestValues) Float(key string) (value float64, present bool, err error) {
	raw, ok := l.Get(key)
	if !ok {
		return 0, false, nil
	}
	value, err = ParseValue(raw)
	return value, true, err
}

// Snapshot returns all entries sorted by key.
func (l *LatestValues) Snapshot() []models.LatestValue {
	l.mu.RLock()
	out := make([]models.LatestValue, 0, len(l.values))
	for _, v := range l.values {
		out = append(out, v)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ParseValue parses a device payload as a finite float64.
func ParseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

// FormatValue renders a number the way it is sent on the wire.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
