package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for counting circle result commands.
type Metrics struct {
	// Commands by name and outcome (applied, rejected, conflict, failed)
	Commands *prometheus.CounterVec

	// Events appended by type
	EventsAppended *prometheus.CounterVec

	CommandLatency *prometheus.HistogramVec

	// Length of the streams folded before a command
	StreamLength prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "votum_result_commands_total",
			Help: "Counting circle result commands by command and outcome",
		}, []string{"command", "outcome"}),

		EventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "votum_result_events_appended_total",
			Help: "Events appended to counting circle result streams by type",
		}, []string{"type"}),

		CommandLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "votum_result_command_duration_seconds",
			Help:    "Duration of result commands including load and append",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"command"}),

		StreamLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "votum_result_stream_length",
			Help:    "Number of events folded to rebuild a result",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) IncCommand(command, outcome string) {
	if m != nil {
		m.Commands.WithLabelValues(command, outcome).Inc()
	}
}

func (m *Metrics) IncEvent(eventType string) {
	if m != nil {
		m.EventsAppended.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) ObserveCommand(command string, d time.Duration) {
	if m != nil {
		m.CommandLatency.WithLabelValues(command).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveStreamLength(n int) {
	if m != nil {
		m.StreamLength.Observe(float64(n))
	}
}
