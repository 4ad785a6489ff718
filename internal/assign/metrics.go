package assign

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "cardbook"

// Assignment outcome label values.
const (
	ResultRecorded    = "recorded"
	ResultDuplicate   = "duplicate"
	ResultUnknownCard = "unknown_card"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Assignments *prometheus.CounterVec
	Events      *prometheus.CounterVec
	Duration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg registers nothing, which keeps tests free of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Assignments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assignments_total",
			Help:      "Card assignments by outcome",
		}, []string{"result"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Completion events published by kind",
		}, []string{"kind"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "assign_duration_seconds",
			Help:      "Time spent in AssignCard including event delivery",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}),
	}
}
