// internal/models/models.go

package models

import (
	"time"
)

// Channel is a chartable temperature stream published by the device.
type Channel string

const (
	ChannelCube        Channel = "term_k"
	ChannelColumn      Channel = "term_c"
	ChannelDeflegmator Channel = "term_d"
)

// TrackedChannels lists every channel kept in the telemetry store.
var TrackedChannels = []Channel{ChannelColumn, ChannelCube, ChannelDeflegmator}

var channelLabels = map[Channel]string{
	ChannelColumn:      "T царга",
	ChannelCube:        "T куб",
	ChannelDeflegmator: "T дефлегматор",
}

// ParseChannel reports whether key names a tracked channel.
func ParseChannel(key string) (Channel, bool) {
	ch := Channel(key)
	if _, ok := channelLabels[ch]; ok {
		return ch, true
	}
	return "", false
}

func (c Channel) Label() string {
	if label, ok := channelLabels[c]; ok {
		return label
	}
	return string(c)
}

// Device topics beyond the temperature channels.
const (
	TopicPower     = "power"
	TopicPressure  = "press_a"
	TopicWorkFlag  = "flag_otb"
	TopicWorkMode  = "work"
	TopicRazgonCmd = "term_k_r"
)

// MainTopics are the device keys written to the main data log, in column order.
var MainTopics = []string{
	string(ChannelColumn),
	string(ChannelCube),
	string(ChannelDeflegmator),
	TopicPower,
	TopicPressure,
	TopicWorkFlag,
}

// TopicLabels are the column headers of MainTopics.
var TopicLabels = map[string]string{
	string(ChannelColumn):      "T царга",
	string(ChannelCube):        "T куб",
	string(ChannelDeflegmator): "T дефлегматор",
	TopicPower:                 "Мощность",
	TopicPressure:              "Атм. давление",
	TopicWorkFlag:              "Флаг отбора",
}

type Sample struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Value     float64   `json:"value" db:"value"`
}

type ChannelSample struct {
	Channel   Channel   `json:"channel" db:"channel"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Value     float64   `json:"value" db:"value"`
}

type LatestValue struct {
	Key        string    `json:"key"`
	Raw        string    `json:"raw"`
	ReceivedAt time.Time `json:"received_at"`
}

type TelemetryMessage struct {
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	Value      *float64  `json:"value,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type Command struct {
	ID       string     `json:"id" db:"id"`
	Topic    string     `json:"topic" db:"topic"`
	Payload  string     `json:"payload" db:"payload"`
	Status   string     `json:"status" db:"status"`
	Error    string     `json:"error,omitempty" db:"error"`
	IssuedAt time.Time  `json:"issued_at" db:"issued_at"`
	SentAt   *time.Time `json:"sent_at,omitempty" db:"sent_at"`
}

const (
	CommandPending = "pending"
	CommandSent    = "sent"
	CommandFailed  = "failed"
)

type WorkModeRequest struct {
	Mode int `json:"mode"`
}

type HeadsPWMRequest struct {
	PWM int `json:"pwm"`
}

type BodyParamsRequest struct {
	TStart float64 `json:"t_start"`
	TStop  float64 `json:"t_stop"`
	PWM    int     `json:"pwm"`
}

type RazgonStopRequest struct {
	Temperature float64 `json:"temperature"`
}

type ParameterRequest struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool `json:"database"`
		MQTT     bool `json:"mqtt"`
		Data     bool `json:"data"`
	} `json:"services"`
}
