// Package metrics exposes engine counters through prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"biochem/internal/chem"
	"biochem/internal/genome"
)

const namespace = "biochem"

type Metrics struct {
	Ticks          prometheus.Counter
	TickErrors     prometheus.Counter
	ReactionsFired prometheus.Counter
	Signals        *prometheus.CounterVec
	Epochs         prometheus.Counter
	Mutations      *prometheus.CounterVec
	Concentration  *prometheus.GaugeVec
}

// New builds the collectors and registers them on reg when reg is non-nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed simulation ticks.",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_errors_total",
			Help:      "Ticks aborted by a lookup or gene error.",
		}),
		ReactionsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_fired_total",
			Help:      "Reaction bodies executed.",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receptor_signals_total",
			Help:      "Receptor threshold crossings by watched chemical.",
		}, []string{"chemical"}),
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epochs_total",
			Help:      "Completed epochs of the evolve loop.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutation operator applications by operator and outcome.",
		}, []string{"operator", "outcome"}),
		Concentration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "concentration",
			Help:      "Committed concentration by chemical.",
		}, []string{"chemical"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Ticks, m.TickErrors, m.ReactionsFired, m.Signals, m.Epochs, m.Mutations, m.Concentration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveTick(result genome.TickResult) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.ReactionsFired.Add(float64(result.ReactionsFired))
	for _, s := range result.Signals {
		m.Signals.WithLabelValues(chemicalLabel(s.Chemical)).Inc()
	}
}

func (m *Metrics) ObserveTickError() {
	if m == nil {
		return
	}
	m.TickErrors.Inc()
}

// ObserveEpoch counts a completed evolve epoch and records its snapshot.
func (m *Metrics) ObserveEpoch(snapshot []chem.Chemical) {
	if m == nil {
		return
	}
	m.Epochs.Inc()
	m.ObserveConcentrations(snapshot)
}

// ObserveConcentrations sets the per-chemical gauge without counting an epoch.
func (m *Metrics) ObserveConcentrations(snapshot []chem.Chemical) {
	if m == nil {
		return
	}
	for _, c := range snapshot {
		m.Concentration.WithLabelValues(chemicalLabel(c.ID)).Set(c.Concentration)
	}
}

func (m *Metrics) ObserveMutation(operator string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Mutations.WithLabelValues(operator, outcome).Inc()
}

func chemicalLabel(id chem.ID) string {
	return strconv.Itoa(int(id))
}
