// Package alarm evaluates the kub, deflegmator and stability signals and the
// data watchdog against the latest telemetry.
package alarm

import (
	"time"

	"AlcoMonitorAPI/internal/models"
)

// Notification is handed to a Sink once per transition into the triggered state.
type Notification struct {
	Signal    string
	Message   string
	Value     *float64
	Threshold *float64
	At        time.Time
}

// Sink receives alarm notifications. Notify must not block.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// LatestReader is the read side of the latest value table.
type LatestReader interface {
	Float(key string) (value float64, present bool, err error)
}

// WindowReader is the read side of the telemetry store.
type WindowReader interface {
	Values(ch models.Channel, start time.Time) []float64
}

func ptr(v float64) *float64 { return &v }
