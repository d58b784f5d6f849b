package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Messages          *prometheus.CounterVec
	MalformedPayloads *prometheus.CounterVec
	Alarms            *prometheus.CounterVec
	SignalTriggered   *prometheus.GaugeVec
	EvaluationSeconds prometheus.Histogram
	Commands          *prometheus.CounterVec
	MQTTConnected     prometheus.Gauge
	LastMessageAge    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alco_messages_total",
			Help: "Device messages received, by topic kind.",
		}, []string{"topic_kind"}),
		MalformedPayloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alco_malformed_payloads_total",
			Help: "Non-numeric payloads on temperature channels.",
		}, []string{"channel"}),
		Alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alco_alarms_total",
			Help: "Alarms raised, by signal.",
		}, []string{"signal"}),
		SignalTriggered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alco_signal_triggered",
			Help: "1 while a signal is in the triggered state.",
		}, []string{"signal"}),
		EvaluationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alco_evaluation_duration_seconds",
			Help:    "Duration of one signal evaluation pass.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alco_commands_total",
			Help: "Device commands issued, by outcome.",
		}, []string{"status"}),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alco_mqtt_connected",
			Help: "1 while the broker connection is up.",
		}),
		LastMessageAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alco_last_message_age_seconds",
			Help: "Seconds since the last device message.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Messages,
		m.MalformedPayloads,
		m.Alarms,
		m.SignalTriggered,
		m.EvaluationSeconds,
		m.Commands,
		m.MQTTConnected,
		m.LastMessageAge,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveEvaluation(d time.Duration) {
	m.EvaluationSeconds.Observe(d.Seconds())
}

func (m *Metrics) SetTriggered(signal string, triggered bool) {
	v := 0.0
	if triggered {
		v = 1
	}
	m.SignalTriggered.WithLabelValues(signal).Set(v)
}

func (m *Metrics) SetMQTTConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.MQTTConnected.Set(v)
}
