/*
Package metrics provides Prometheus metrics collection and exposition for
the daemon.

Metrics are registered at package init time and exposed over HTTP for
scraping. Health/readiness/liveness handlers live alongside the metric
definitions since both are part of the same operational surface.

# Metrics Catalog

Cluster model (sampled by Collector every 15s from the in-memory
ClusterConfig):

  - drbdmanaged_nodes_total (gauge)
  - drbdmanaged_resources_total (gauge)
  - drbdmanaged_assignments_total{state} (gauge; state one of
    deployed/diskless/pending/dead)
  - drbdmanaged_storage_pool_size_kib{node} / _free_kib{node} (gauge)

Reconciliation engine (C8):

  - drbdmanaged_reconciliation_duration_seconds (histogram)
  - drbdmanaged_reconciliation_runs_total (counter)
  - drbdmanaged_reconciliation_failures_total{stage} (counter; stage one
    of allocate/admin/attach/connect/drbdctrl)

Admin tool (C6):

  - drbdmanaged_admin_tool_invocations_total{op,exit_code} (counter)
  - drbdmanaged_admin_tool_duration_seconds{op} (histogram)

Event pipeline (C7):

  - drbdmanaged_event_triggers_total (counter)
  - drbdmanaged_event_subprocess_restarts_total (counter)

Server façade (C9):

  - drbdmanaged_rpc_requests_total{operation,code} (counter)
  - drbdmanaged_rpc_request_duration_seconds{operation} (histogram)

# Usage

	timer := metrics.NewTimer()
	code, err := tool.Adjust(ctx, resName)
	metrics.AdminToolInvocationsTotal.WithLabelValues("adjust", strconv.Itoa(code)).Inc()
	timer.ObserveDurationVec(metrics.AdminToolDuration, "adjust")

# Health

RegisterComponent/UpdateComponent track the health of named subsystems
(persistence, eventstream, rpc); HealthHandler/ReadyHandler/
LivenessHandler expose /health, /ready and /live as JSON.
*/
package metrics
