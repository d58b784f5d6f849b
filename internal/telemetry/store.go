package telemetry

import (
	"sync"
	"time"

	"AlcoMonitorAPI/internal/models"
)

// DefaultCapacity is the per-channel sample cap.
const DefaultCapacity = 1_000_000

// Store keeps an append-only, capped history per tracked channel.
// Samples of one channel are kept in arrival order.
type Store struct {
	mu       sync.RWMutex
	series   map[models.Channel][]models.Sample
	capacity int
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	s := &Store{
		series:   make(map[models.Channel][]models.Sample, len(models.TrackedChannels)),
		capacity: capacity,
	}
	for _, ch := range models.TrackedChannels {
		s.series[ch] = nil
	}
	return s
}

// Append records a sample. Untracked channels are ignored.
func (s *Store) Append(ch models.Channel, ts time.Time, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples, ok := s.series[ch]
	if !ok {
		return
	}

	if len(samples) >= s.capacity {
		// reslicing keeps the append amortized; the backing array is
		// reallocated with only live samples once its capacity runs out
		samples = samples[len(samples)-s.capacity+1:]
	}
	s.series[ch] = append(samples, models.Sample{Timestamp: ts, Value: value})
}

// Window returns every sample with Timestamp >= start, oldest first.
// It scans backward from the newest sample and stops at the first older one.
func (s *Store) Window(ch models.Channel, start time.Time) []models.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.series[ch]
	i := len(samples)
	for i > 0 && !samples[i-1].Timestamp.Before(start) {
		i--
	}

	out := make([]models.Sample, len(samples)-i)
	copy(out, samples[i:])
	return out
}

// Values is Window without timestamps.
func (s *Store) Values(ch models.Channel, start time.Time) []float64 {
	window := s.Window(ch, start)
	values := make([]float64, len(window))
	for i, sample := range window {
		values[i] = sample.Value
	}
	return values
}

func (s *Store) Len(ch models.Channel) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[ch])
}

// Last returns the newest sample of a channel.
func (s *Store) Last(ch models.Channel) (models.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.series[ch]
	if len(samples) == 0 {
		return models.Sample{}, false
	}
	return samples[len(samples)-1], true
}
