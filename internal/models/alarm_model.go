package models

import "time"

// Signal names
const (
	SignalKub         = "kub"
	SignalDeflegmator = "deflegmator"
	SignalStability   = "stability"
	SignalWatchdog    = "watchdog"
)

// Signal states
const (
	StateArmed     = "armed"
	StateTriggered = "triggered"
	StateDisarmed  = "disarmed"
)

// Evaluation phases reported alongside the state.
const (
	PhaseWaiting      = "waiting"
	PhaseMonitoring   = "monitoring"
	PhaseGated        = "gated"
	PhaseInsufficient = "insufficient"
	PhaseTriggered    = "triggered"
	PhaseDisabled     = "disabled"
)

// Alarm is one fired notification, kept for history.
type Alarm struct {
	ID        string    `json:"id" db:"id"`
	Signal    string    `json:"signal" db:"signal"`
	Message   string    `json:"message" db:"message"`
	Value     *float64  `json:"value,omitempty" db:"value"`
	Threshold *float64  `json:"threshold,omitempty" db:"threshold"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SignalStatus struct {
	Signal    string    `json:"signal"`
	State     string    `json:"state"`
	Phase     string    `json:"phase"`
	Message   string    `json:"message"`
	Value     *float64  `json:"value,omitempty"`
	Threshold float64   `json:"threshold"`
	Variation *float64  `json:"variation,omitempty"`
	MeanDT    *float64  `json:"mean_dt,omitempty"`
	Pairs     int       `json:"pairs,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WatchdogStatus struct {
	LastMessageAt time.Time `json:"last_message_at"`
	Timeout       float64   `json:"timeout_seconds"`
	Stale         bool      `json:"stale"`
	AlarmActive   bool      `json:"alarm_active"`
}

type MonitorStatus struct {
	Signals  []SignalStatus `json:"signals"`
	Watchdog WatchdogStatus `json:"watchdog"`
	Settings Settings       `json:"settings"`
}
