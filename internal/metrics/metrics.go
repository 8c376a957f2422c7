package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the pipeline.
type Metrics struct {
	EventsIngested  prometheus.Counter
	AlertsRaised    *prometheus.CounterVec
	ThreatsBlocked  prometheus.Counter
	FeedFetches     *prometheus.CounterVec
	FeedFetchErrors *prometheus.CounterVec
	FetchesSkipped  prometheus.Counter
	StaleDropped    prometheus.Counter
	PublishErrors   prometheus.Counter
}

// New registers all instruments against the given registerer. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentry_events_ingested_total",
			Help: "Total number of security events ingested",
		}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_alerts_raised_total",
			Help: "Total number of alerts raised, by status",
		}, []string{"status"}),
		ThreatsBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentry_threats_blocked_total",
			Help: "Total number of automatically blocked threats",
		}),
		FeedFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_feed_fetches_total",
			Help: "Total number of feed fetch attempts, by source",
		}, []string{"source"}),
		FeedFetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_feed_fetch_errors_total",
			Help: "Total number of failed feed fetches, by source",
		}, []string{"source"}),
		FetchesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentry_fetch_cycles_skipped_total",
			Help: "Total number of fetch cycles rejected by the cooldown guard",
		}),
		StaleDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentry_stale_insertions_dropped_total",
			Help: "Total number of staggered insertions discarded after a mode switch",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentry_alert_publish_errors_total",
			Help: "Total number of alert publish failures",
		}),
	}
}
