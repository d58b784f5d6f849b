package service

import (
	"sync"

	"AlcoMonitorAPI/internal/models"
)

type alarmRing struct {
	mu    sync.RWMutex
	items []models.Alarm
	next  int
	full  bool
}

func newAlarmRing(size int) *alarmRing {
	return &alarmRing{items: make([]models.Alarm, size)}
}

func (r *alarmRing) add(a models.Alarm) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = a
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

func (r *alarmRing) newestFirst() []models.Alarm {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.items)
	}

	out := make([]models.Alarm, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.items)) % len(r.items)
		out = append(out, r.items[idx])
	}
	return out
}
