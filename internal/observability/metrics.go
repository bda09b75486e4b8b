package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors. Label values are bounded: action is Accepted/Rejected,
// source is app/oneclick/comment, result and kind are small fixed sets.
var (
	// Decisions counts recorded approver decisions.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_decisions_total",
			Help: "Approver decisions recorded, by action and source.",
		},
		[]string{"action", "source"},
	)

	// OneClickRedemptions counts one-click and comment-link redemptions by outcome.
	OneClickRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_oneclick_redemptions_total",
			Help: "Mailed action link redemptions, by result.",
		},
		[]string{"result"},
	)

	// Notifications counts outbound notices by kind and delivery result.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_notifications_total",
			Help: "Outbound notifications, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// RateLimited counts requests rejected by a rate limiter, by limiter scope.
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_rate_limited_total",
			Help: "Requests rejected with 429, by limiter scope.",
		},
		[]string{"scope"},
	)

	// NotifyQueueDepth gauges notices waiting for a dispatcher worker.
	NotifyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "claims_notify_queue_depth",
			Help: "Notices buffered for asynchronous delivery.",
		},
	)
)

// Decision sources.
const (
	SourceApp      = "app"
	SourceOneClick = "oneclick"
	SourceComment  = "comment"
)

func init() {
	prometheus.MustRegister(Decisions, OneClickRedemptions, Notifications, RateLimited, NotifyQueueDepth)
}
