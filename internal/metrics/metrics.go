package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"telegram-health-assistant/internal/models"
)

var (
	tokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Subsystem: "tokens",
		Name:      "refresh_total",
		Help:      "Provider token refresh attempts by outcome.",
	}, []string{"provider", "outcome"})
	credentialsExpired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Subsystem: "tokens",
		Name:      "credentials_expired_total",
		Help:      "Credentials cleared because the provider rejected them.",
	}, []string{"provider"})
	providerFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Subsystem: "providers",
		Name:      "fetch_total",
		Help:      "Provider data fetches by outcome.",
	}, []string{"provider", "outcome"})
	snapshotCycleState = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Subsystem: "snapshot",
		Name:      "built_total",
		Help:      "Today snapshots built, by cycle state.",
	}, []string{"cycle_state"})
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Background job runs by job and outcome.",
	}, []string{"job", "outcome"})
)

func init() {
	prometheus.MustRegister(tokenRefreshes, credentialsExpired, providerFetches, snapshotCycleState, jobRuns)
}

func RecordTokenRefresh(p models.Provider, outcome string) {
	tokenRefreshes.WithLabelValues(string(p), outcome).Inc()
}

func RecordCredentialExpired(p models.Provider) {
	credentialsExpired.WithLabelValues(string(p)).Inc()
}

func RecordFetch(p models.Provider, outcome string) {
	providerFetches.WithLabelValues(string(p), outcome).Inc()
}

func RecordSnapshot(state models.CycleState) {
	snapshotCycleState.WithLabelValues(state.String()).Inc()
}

func RecordJob(job, outcome string) {
	jobRuns.WithLabelValues(job, outcome).Inc()
}
