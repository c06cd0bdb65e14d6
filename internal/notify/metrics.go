package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events and the value moved by them.
type MetricsSink struct {
	events  *prometheus.CounterVec
	amounts *prometheus.CounterVec
}

// NewMetricsSink creates the collectors and registers them on reg.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	m := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ajo",
			Name:      "events_total",
			Help:      "Group events emitted, by kind.",
		}, []string{"kind"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ajo",
			Name:      "amount_total",
			Help:      "Sum of amounts carried by group events, in minor units, by kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.events, m.amounts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// movesValue lists the kinds whose Amount is money that actually changed
// hands. A created event carries the contribution size as a parameter.
var movesValue = map[Kind]bool{
	ContributionMade:    true,
	PayoutExecuted:      true,
	EmergencyWithdrawal: true,
}

// Emit implements Sink.
func (m *MetricsSink) Emit(_ context.Context, e Event) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
	if e.Amount > 0 && movesValue[e.Kind] {
		m.amounts.WithLabelValues(string(e.Kind)).Add(float64(e.Amount))
	}
	if e.Penalty > 0 {
		m.amounts.WithLabelValues("penalty").Add(float64(e.Penalty))
	}
}
