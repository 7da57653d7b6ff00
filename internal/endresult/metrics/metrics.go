package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for end result computation and commands.
type Metrics struct {
	Recomputes       *prometheus.CounterVec
	RecomputeLatency prometheus.Histogram
	Commands         *prometheus.CounterVec

	// Open lot decisions after the latest recompute, by business
	OpenLotDecisions *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		Recomputes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "votum_endresult_recomputes_total",
			Help: "End result recomputations by trigger and outcome",
		}, []string{"trigger", "outcome"}),

		RecomputeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "votum_endresult_recompute_duration_seconds",
			Help:    "Duration of loading snapshots and computing an end result",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "votum_endresult_commands_total",
			Help: "Lot decision and finalization commands by command and outcome",
		}, []string{"command", "outcome"}),

		OpenLotDecisions: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "votum_endresult_open_lot_decisions",
			Help: "Unresolved lot decisions per political business",
		}, []string{"political_business_id"}),
	}
}

func (m *Metrics) IncRecompute(trigger, outcome string) {
	if m != nil {
		m.Recomputes.WithLabelValues(trigger, outcome).Inc()
	}
}

func (m *Metrics) ObserveRecompute(d time.Duration) {
	if m != nil {
		m.RecomputeLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncCommand(command, outcome string) {
	if m != nil {
		m.Commands.WithLabelValues(command, outcome).Inc()
	}
}

func (m *Metrics) SetOpenLotDecisions(businessID string, open int) {
	if m != nil {
		m.OpenLotDecisions.WithLabelValues(businessID).Set(float64(open))
	}
}
