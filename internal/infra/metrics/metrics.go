// Package metrics holds the Prometheus instrumentation for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set bundles every metric the bot exposes. Construct one per process
// (or per test registry) with New.
type Set struct {
	InboundMessages prometheus.Counter
	Commands        *prometheus.CounterVec // label: kind
	Challenges      *prometheus.CounterVec // label: outcome (match|mismatch|expired)
	Credits         *prometheus.CounterVec // label: reason (BONUS|TASK|GAME|ADMIN)
	GamesWon        prometheus.Counter
	AIRequests      *prometheus.CounterVec // label: result (ok|error)
	ActiveTimers    prometheus.Gauge
}

// New registers the metric set on reg.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		InboundMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "poinbot_inbound_messages_total",
			Help: "Inbound chat messages received.",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poinbot_commands_total",
			Help: "Commands dispatched while idle, by kind.",
		}, []string{"kind"}),
		Challenges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poinbot_challenges_resolved_total",
			Help: "Verification challenges resolved, by outcome.",
		}, []string{"outcome"}),
		Credits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poinbot_credits_granted_total",
			Help: "Points credited, by reason.",
		}, []string{"reason"}),
		GamesWon: factory.NewCounter(prometheus.CounterOpts{
			Name: "poinbot_games_won_total",
			Help: "Guessing games won.",
		}),
		AIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poinbot_ai_requests_total",
			Help: "AI generation attempts, by result.",
		}, []string{"result"}),
		ActiveTimers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poinbot_active_challenge_timers",
			Help: "Deadline timers currently scheduled for task challenges.",
		}),
	}
}
