// Package metrics publishes the process-wide Prometheus registry used
// by the provider manager. Kept deliberately small:
// the spec's Non-goals exclude building an observability product, but
// ambient metrics (like ambient logging) are carried regardless.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ProviderHealthScore is the last computed health score (spec
	// §4.3) per provider.
	ProviderHealthScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exitbook_provider_health_score",
			Help: "Current health score for a provider, as computed by the health scorer.",
		},
		[]string{"chain", "provider"},
	)

	// CircuitState is registered for the circuit breaker state
	// (0=closed, 1=half_open, 2=open) per provider; no code path sets it.
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exitbook_circuit_state",
			Help: "Circuit breaker state per provider: 0=closed, 1=half_open, 2=open.",
		},
		[]string{"chain", "provider"},
	)

	// FailoverTotal counts every time the provider manager moved to
	// the next candidate provider within one executeWithFailover call.
	FailoverTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exitbook_provider_failover_total",
			Help: "Number of times ingestion failed over to the next provider.",
		},
		[]string{"chain", "from_provider", "reason"},
	)

	// RetryTotal counts in-provider retries before a failover decision.
	RetryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exitbook_provider_retry_total",
			Help: "Number of in-provider retries attempted before failover or success.",
		},
		[]string{"chain", "provider"},
	)

	// BatchesYielded counts successfully yielded batches per provider.
	BatchesYielded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exitbook_batches_yielded_total",
			Help: "Number of batches yielded to the consumer per provider.",
		},
		[]string{"chain", "provider"},
	)
)

// Registry is the process-wide collector registry. Wiring it into an
// HTTP exposition endpoint is left to the CLI/operator layer — out of
// scope for this engine per spec §1.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(ProviderHealthScore, CircuitState, FailoverTotal, RetryTotal, BatchesYielded)
}
