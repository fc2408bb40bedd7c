package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster model metrics
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drbdmanaged_nodes_total",
			Help: "Total number of nodes in the cluster config",
		},
	)

	ResourcesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drbdmanaged_resources_total",
			Help: "Total number of resources in the cluster config",
		},
	)

	AssignmentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drbdmanaged_assignments_total",
			Help: "Total number of assignments by deployment state",
		},
		[]string{"state"}, // deployed, pending, diskless, dead
	)

	StoragePoolSizeKiB = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drbdmanaged_storage_pool_size_kib",
			Help: "Total backend storage pool size per node, in KiB",
		},
		[]string{"node"},
	)

	StoragePoolFreeKiB = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drbdmanaged_storage_pool_free_kib",
			Help: "Free backend storage pool size per node, in KiB",
		},
		[]string{"node"},
	)

	// Reconciliation engine metrics (C8)
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drbdmanaged_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drbdmanaged_reconciliation_runs_total",
			Help: "Total number of reconciliation runs completed",
		},
	)

	ReconciliationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbdmanaged_reconciliation_failures_total",
			Help: "Total number of per-assignment reconciliation failures by stage",
		},
		[]string{"stage"}, // allocate, admin, attach, connect, drbdctrl
	)

	// Admin tool (C6) metrics
	AdminToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbdmanaged_admin_tool_invocations_total",
			Help: "Total number of drbdadm/drbdsetup invocations by operation and exit code",
		},
		[]string{"op", "exit_code"},
	)

	AdminToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drbdmanaged_admin_tool_duration_seconds",
			Help:    "Time taken for a drbdadm/drbdsetup invocation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Event pipeline (C7) metrics
	EventTriggersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drbdmanaged_event_triggers_total",
			Help: "Total number of coalesced reconcile triggers raised by the event pipeline",
		},
	)

	EventSubprocessRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drbdmanaged_event_subprocess_restarts_total",
			Help: "Total number of times the events2 subprocess was restarted after exiting",
		},
	)

	// Server façade (C9) metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbdmanaged_rpc_requests_total",
			Help: "Total number of RPC mutator/listing calls by operation and result code",
		},
		[]string{"operation", "code"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drbdmanaged_rpc_request_duration_seconds",
			Help:    "RPC request duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(StoragePoolSizeKiB)
	prometheus.MustRegister(StoragePoolFreeKiB)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationRunsTotal)
	prometheus.MustRegister(ReconciliationFailuresTotal)
	prometheus.MustRegister(AdminToolInvocationsTotal)
	prometheus.MustRegister(AdminToolDuration)
	prometheus.MustRegister(EventTriggersTotal)
	prometheus.MustRegister(EventSubprocessRestartsTotal)
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
