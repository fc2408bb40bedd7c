// Package rpcshape defines the wire-agnostic request/response shapes of
// the server façade's RPC surface (spec §6: "shape, not transport").
// Nothing here opens a socket or frames a message; a real transport
// binding (gRPC, a line-oriented pipe, whatever) marshals these structs.
package rpcshape

import "github.com/drbdmanage/drbdmanaged/pkg/rc"

// VolumePayload is a Resource's volume listing entry.
type VolumePayload struct {
	ID    int               `json:"id"`
	Props map[string]string `json:"props"`
}

// NodePayload is a Node listing entry.
type NodePayload struct {
	Name  string            `json:"name"`
	Props map[string]string `json:"props"`
}

// ResourcePayload is a Resource listing entry, carrying its Volumes only
// when the caller asked for them.
type ResourcePayload struct {
	Name    string            `json:"name"`
	Props   map[string]string `json:"props"`
	Volumes []VolumePayload   `json:"volumes,omitempty"`
}

// VolumeStatePayload is one VolumeState within an AssignmentPayload.
type VolumeStatePayload struct {
	VolID  int    `json:"vol_id"`
	CState uint32 `json:"cstate"`
	TState uint32 `json:"tstate"`
}

// AssignmentPayload is an Assignment listing entry.
type AssignmentPayload struct {
	NodeName     string               `json:"node_name"`
	ResName      string               `json:"res_name"`
	CState       uint32               `json:"cstate"`
	TState       uint32               `json:"tstate"`
	Props        map[string]string    `json:"props"`
	VolumeStates []VolumeStatePayload `json:"volume_states"`
}

// SnapshotVolumeStatePayload is one per-volume state of a
// SnapshotAssignmentPayload.
type SnapshotVolumeStatePayload struct {
	VolID  int    `json:"vol_id"`
	CState uint32 `json:"cstate"`
	TState uint32 `json:"tstate"`
}

// SnapshotAssignmentPayload is a Snapshot's per-node listing entry,
// analogous to AssignmentPayload (spec §6).
type SnapshotAssignmentPayload struct {
	NodeName     string                       `json:"node_name"`
	ResName      string                       `json:"res_name"`
	SnapName     string                       `json:"snap_name"`
	CState       uint32                       `json:"cstate"`
	TState       uint32                       `json:"tstate"`
	VolumeStates []SnapshotVolumeStatePayload `json:"volume_states"`
}

// Response pairs a mutator's ordered result list with the listing
// payload it carries, if any. A plain mutator (create/remove/modify)
// returns a Response with a nil Payload; a listing call fills it.
type Response struct {
	Results rc.List     `json:"results"`
	Payload interface{} `json:"payload,omitempty"`
}
