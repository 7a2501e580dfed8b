package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Metrics are created eagerly so instrumented code paths work before (and
// without) registration, e.g. in tests. InitCustomMetrics attaches them to a
// registry at startup.
var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_tokens_issued_total",
		Help: "Total number of access/refresh token pairs issued.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	ActivityUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_activity_updates_total",
		Help: "Total number of persisted activity updates.",
	})
	ActivityUpdateFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_activity_update_failures_total",
		Help: "Total number of activity updates that failed and were tolerated.",
	})
	SweepMarkedInactiveTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_sweep_marked_inactive_total",
		Help: "Total number of records flipped to inactive by the reconciler.",
	})
	SweepReconciledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_sweep_reconciled_total",
		Help: "Total number of records whose expiry bookkeeping was repaired.",
	})
	SweepFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_sweep_failures_total",
		Help: "Total number of reconciler cycles that aborted on error.",
	})
	ActiveUsersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sessiond_active_users_gauge",
		Help: "Current number of users marked active.",
	})
)

// InitCustomMetrics registers the custom Prometheus metrics.
// It should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := []prometheus.Collector{
		TokensIssuedTotal,
		LoginSuccessTotal,
		LoginFailureTotal,
		ActivityUpdatesTotal,
		ActivityUpdateFailuresTotal,
		SweepMarkedInactiveTotal,
		SweepReconciledTotal,
		SweepFailuresTotal,
		ActiveUsersGauge,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register Prometheus metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
