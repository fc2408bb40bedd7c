// Package reconciler implements the reconciliation engine (spec C8): the
// component that drives cstate toward tstate for every Assignment in a
// ClusterConfig by calling the storage backend (C5) and DRBD admin
// interface (C6), then garbage-collects entities whose lifetime has
// ended.
//
// Engine is grounded on the teacher's pkg/reconciler.Reconciler: a
// mutex-guarded struct with Start/Stop wrapping a goroutine, zerolog
// component logger, and a metrics.Timer around each pass. Where the
// teacher's reconcile() polls a *manager.Manager on a fixed ticker, this
// Engine's runLoop is driven by eventstream.TriggerBatch values arriving
// on a channel — triggers are event-driven here, not polled, matching
// spec §5's "self-scheduled reconcile requests" source family.
package reconciler
