// Package notify implements the change notifier (spec C10): a Sink
// per observable object path with notify_changed/notify_removed, and a
// Broker of decoupled subscribers. The reconciler (C8) calls
// NotifyChanged after any cstate transition and NotifyRemoved when an
// entity is garbage-collected.
//
// Adapted from the teacher's pkg/events/events.go Broker: the same
// subscribe/unsubscribe/publish/broadcast shape and buffered-channel-
// per-subscriber backpressure policy (drop on a full subscriber buffer
// rather than block the broadcaster), retargeted from container-
// lifecycle EventType values to the cluster-entity Change values this
// daemon actually emits.
package notify
