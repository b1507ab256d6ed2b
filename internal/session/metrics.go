package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Polls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "multiplayer_polls_total",
			Help: "Total state polls issued by session clients",
		},
	)
	PollFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "multiplayer_poll_failures_total",
			Help: "Total state polls that failed and were skipped",
		},
	)
	RoundAdvances = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "multiplayer_round_advances_total",
			Help: "Total host round-advance writes accepted by the arbitrator",
		},
	)
	StoreFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "multiplayer_store_fallbacks_total",
			Help: "Total sessions pinned from the networked store to the local fallback",
		},
	)
)

func init() {
	prometheus.MustRegister(Polls)
	prometheus.MustRegister(PollFailures)
	prometheus.MustRegister(RoundAdvances)
	prometheus.MustRegister(StoreFallbacks)
}
