// Package metrics exposes prometheus collectors for tables and tournaments.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pokermatic"

// Collector groups the server's prometheus metrics
type Collector struct {
	handsPlayed     prometheus.Counter
	actions         *prometheus.CounterVec
	forcedFolds     prometheus.Counter
	ruleViolations  prometheus.Counter
	eliminations    prometheus.Counter
	publishFailures prometheus.Counter
	activeTables    prometheus.Gauge
	tournaments     *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		handsPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hands_played_total",
			Help:      "Hands settled at showdown across all tables.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Accepted player actions by type.",
		}, []string{"action"}),
		forcedFolds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_folds_total",
			Help:      "Folds applied by the move watchdog after a deadline passed.",
		}),
		ruleViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_violations_total",
			Help:      "Rejected player actions.",
		}),
		eliminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Players knocked out of tournaments.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Failed notification deliveries, counting each retry.",
		}),
		activeTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tables",
			Help:      "Tables with a hand in progress or about to start.",
		}),
		tournaments: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tournaments",
			Help:      "Tournaments by lifecycle state.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		c.handsPlayed,
		c.actions,
		c.forcedFolds,
		c.ruleViolations,
		c.eliminations,
		c.publishFailures,
		c.activeTables,
		c.tournaments,
	)
	return c
}

func (c *Collector) HandPlayed() {
	if c != nil {
		c.handsPlayed.Inc()
	}
}

func (c *Collector) Action(action string) {
	if c != nil {
		c.actions.WithLabelValues(action).Inc()
	}
}

func (c *Collector) ForcedFold() {
	if c != nil {
		c.forcedFolds.Inc()
	}
}

func (c *Collector) RuleViolation() {
	if c != nil {
		c.ruleViolations.Inc()
	}
}

func (c *Collector) Eliminated(n int) {
	if c != nil {
		c.eliminations.Add(float64(n))
	}
}

func (c *Collector) PublishFailed() {
	if c != nil {
		c.publishFailures.Inc()
	}
}

func (c *Collector) TableStarted() {
	if c != nil {
		c.activeTables.Inc()
	}
}

func (c *Collector) TableStopped() {
	if c != nil {
		c.activeTables.Dec()
	}
}

// TournamentState moves one tournament from one lifecycle state to another.
// An empty from is used for newly created tournaments.
func (c *Collector) TournamentState(from, to string) {
	if c == nil {
		return
	}
	if from != "" {
		c.tournaments.WithLabelValues(from).Dec()
	}
	c.tournaments.WithLabelValues(to).Inc()
}
