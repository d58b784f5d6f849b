package alarm

import (
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/models"
)

// DefaultDataTimeout is how long the device may stay silent before the
// watchdog fires.
const DefaultDataTimeout = 60 * time.Second

// Watchdog fires one "no data" alarm per silence and re-arms on the next message.
type Watchdog struct {
	timeout     time.Duration
	last        time.Time
	alarmActive bool
}

// NewWatchdog starts counting silence from start.
func NewWatchdog(timeout time.Duration, start time.Time) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultDataTimeout
	}
	return &Watchdog{timeout: timeout, last: start}
}

// Touch records an inbound message and clears the suppression flag.
func (w *Watchdog) Touch(at time.Time) {
	if at.After(w.last) {
		w.last = at
	}
	w.alarmActive = false
}

// Check fires the alarm when the silence exceeds the timeout. It reports
// whether a notification was sent.
func (w *Watchdog) Check(now time.Time, sink Sink) bool {
	silence := now.Sub(w.last)
	if silence <= w.timeout || w.alarmActive {
		return false
	}

	w.alarmActive = true
	message := fmt.Sprintf("Нет данных от устройства в течение %.1f мин., проверьте устройство или соединение",
		silence.Minutes())
	sink.Notify(Notification{
		Signal:    models.SignalWatchdog,
		Message:   message,
		Value:     ptr(silence.Seconds()),
		Threshold: ptr(w.timeout.Seconds()),
		At:        now,
	})
	return true
}

func (w *Watchdog) Status(now time.Time) models.WatchdogStatus {
	return models.WatchdogStatus{
		LastMessageAt: w.last,
		Timeout:       w.timeout.Seconds(),
		Stale:         now.Sub(w.last) > w.timeout,
		AlarmActive:   w.alarmActive,
	}
}
