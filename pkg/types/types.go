package types

import "github.com/drbdmanage/drbdmanaged/pkg/props"

// Allocator range constants (spec §4.3), grounded on
// original_source/drbdmanage/server.py's DEFAULT_MAX_NODE_ID/MAX_RES_VOLS.
const (
	// DefaultMaxNodeID is the default upper bound (inclusive) for node_id
	// allocation, overridable via the server config's max-node-id key.
	DefaultMaxNodeID = 31

	// MaxResVols is the inclusive upper bound for a Resource's vol_id.
	MaxResVols = 255

	// MinorNrMax is the inclusive upper bound for a Volume's minor number.
	MinorNrMax = 131072

	// MinorNrAuto/MinorNrError mirror the sentinels used at the RPC
	// boundary for "allocate automatically" and "allocation failed".
	MinorNrAuto  = -1
	MinorNrError = -2

	// ResPortAuto/ResPortError are the matching sentinels for Resource
	// port allocation.
	ResPortAuto  = 0
	ResPortError = -1
)

// Node is a cluster member (spec §3). Its Assignments are not owned
// pointers: they live in ClusterConfig.Assignments, keyed by
// AssignmentKey{NodeName, ResName}, and are resolved on demand.
type Node struct {
	Name         string
	Addr         string
	NodeID       int
	PoolSizeKiB  int64 // -1 means unknown
	PoolFreeKiB  int64 // -1 means unknown
	State        Flags
	Props        *props.Container
	Assignments  []string // resource names this node has an Assignment for
}

// NewNode returns a Node with an empty property bag and unknown pool
// sizes.
func NewNode(name, addr string, nodeID int) *Node {
	return &Node{
		Name:        name,
		Addr:        addr,
		NodeID:      nodeID,
		PoolSizeKiB: -1,
		PoolFreeKiB: -1,
		Props:       props.New(),
	}
}

// SetStateFlags sets mask in Node.State.
func (n *Node) SetStateFlags(mask Flags) { n.State = n.State.Set(mask) }

// ClearStateFlags clears mask in Node.State.
func (n *Node) ClearStateFlags(mask Flags) { n.State = n.State.Clear(mask) }

// SetState replaces Node.State outright.
func (n *Node) SetState(value Flags) { n.State = value }

// Resource is a named DRBD resource (spec §3), owning its Volumes and
// Snapshots.
type Resource struct {
	Name        string
	Port        int
	Secret      string
	State       Flags
	Props       *props.Container
	Volumes     map[int]*Volume    // keyed by vol_id
	volOrder    []int              // insertion order, for deterministic iteration
	Snapshots   map[string]*Snapshot
	snapOrder   []string
	Assignments []string // node names this resource has an Assignment on
}

// NewResource returns a Resource with empty Volume/Snapshot maps.
func NewResource(name string, port int, secret string) *Resource {
	return &Resource{
		Name:      name,
		Port:      port,
		Secret:    secret,
		Props:     props.New(),
		Volumes:   make(map[int]*Volume),
		Snapshots: make(map[string]*Snapshot),
	}
}

// SetStateFlags sets mask in Resource.State.
func (r *Resource) SetStateFlags(mask Flags) { r.State = r.State.Set(mask) }

// ClearStateFlags clears mask in Resource.State.
func (r *Resource) ClearStateFlags(mask Flags) { r.State = r.State.Clear(mask) }

// SetState replaces Resource.State outright.
func (r *Resource) SetState(value Flags) { r.State = value }

// AddVolume inserts vol under its VolID, preserving insertion order for
// VolumesOrdered.
func (r *Resource) AddVolume(vol *Volume) {
	if _, exists := r.Volumes[vol.VolID]; !exists {
		r.volOrder = append(r.volOrder, vol.VolID)
	}
	r.Volumes[vol.VolID] = vol
}

// RemoveVolume deletes the volume with the given vol_id.
func (r *Resource) RemoveVolume(volID int) {
	if _, exists := r.Volumes[volID]; !exists {
		return
	}
	delete(r.Volumes, volID)
	for i, id := range r.volOrder {
		if id == volID {
			r.volOrder = append(r.volOrder[:i], r.volOrder[i+1:]...)
			break
		}
	}
}

// VolumesOrdered returns the Resource's volumes in insertion order.
func (r *Resource) VolumesOrdered() []*Volume {
	out := make([]*Volume, 0, len(r.volOrder))
	for _, id := range r.volOrder {
		out = append(out, r.Volumes[id])
	}
	return out
}

// AddSnapshot inserts snap under its Name, preserving insertion order.
func (r *Resource) AddSnapshot(snap *Snapshot) {
	if _, exists := r.Snapshots[snap.Name]; !exists {
		r.snapOrder = append(r.snapOrder, snap.Name)
	}
	r.Snapshots[snap.Name] = snap
}

// RemoveSnapshot deletes the snapshot with the given name.
func (r *Resource) RemoveSnapshot(name string) {
	if _, exists := r.Snapshots[name]; !exists {
		return
	}
	delete(r.Snapshots, name)
	for i, n := range r.snapOrder {
		if n == name {
			r.snapOrder = append(r.snapOrder[:i], r.snapOrder[i+1:]...)
			break
		}
	}
}

// SnapshotsOrdered returns the Resource's snapshots in insertion order.
func (r *Resource) SnapshotsOrdered() []*Snapshot {
	out := make([]*Snapshot, 0, len(r.snapOrder))
	for _, name := range r.snapOrder {
		out = append(out, r.Snapshots[name])
	}
	return out
}

// Volume is a Resource's numbered volume (spec §3).
type Volume struct {
	VolID       int
	GrossSizeKiB int64
	NetSizeKiB   int64
	MinorNr      int
	State        Flags
	Props        *props.Container
}

// NewVolume returns a Volume with an empty property bag.
func NewVolume(volID int, grossSizeKiB int64, minorNr int) *Volume {
	return &Volume{
		VolID:        volID,
		GrossSizeKiB: grossSizeKiB,
		NetSizeKiB:   grossSizeKiB,
		MinorNr:      minorNr,
		Props:        props.New(),
	}
}

// SetStateFlags sets mask in Volume.State.
func (v *Volume) SetStateFlags(mask Flags) { v.State = v.State.Set(mask) }

// ClearStateFlags clears mask in Volume.State.
func (v *Volume) ClearStateFlags(mask Flags) { v.State = v.State.Clear(mask) }

// SetState replaces Volume.State outright.
func (v *Volume) SetState(value Flags) { v.State = value }

// AssignmentKey identifies an Assignment by the (node, resource) pair it
// relates, per the §9 "central store keyed by (node_name, res_name)"
// design note.
type AssignmentKey struct {
	NodeName string
	ResName  string
}

// Assignment is the (Node, Resource) relation (spec §3): whether and how
// a Resource is deployed on a Node.
type Assignment struct {
	NodeName    string
	ResName     string
	NodeID      int // per-resource node_id, distinct from Node.NodeID
	CState      Flags
	TState      Flags
	Props       *props.Container
	VolStates   map[int]*VolumeState // keyed by vol_id
	volOrder    []int
}

// NewAssignment returns an Assignment with an empty property bag and no
// VolumeStates.
func NewAssignment(nodeName, resName string, nodeID int) *Assignment {
	return &Assignment{
		NodeName:  nodeName,
		ResName:   resName,
		NodeID:    nodeID,
		Props:     props.New(),
		VolStates: make(map[int]*VolumeState),
	}
}

// Key returns the AssignmentKey identifying a.
func (a *Assignment) Key() AssignmentKey {
	return AssignmentKey{NodeName: a.NodeName, ResName: a.ResName}
}

// SetCStateFlags sets mask in Assignment.CState.
func (a *Assignment) SetCStateFlags(mask Flags) { a.CState = a.CState.Set(mask) }

// ClearCStateFlags clears mask in Assignment.CState.
func (a *Assignment) ClearCStateFlags(mask Flags) { a.CState = a.CState.Clear(mask) }

// SetCState replaces Assignment.CState outright.
func (a *Assignment) SetCState(value Flags) { a.CState = value }

// SetTStateFlags sets mask in Assignment.TState.
func (a *Assignment) SetTStateFlags(mask Flags) { a.TState = a.TState.Set(mask) }

// ClearTStateFlags clears mask in Assignment.TState.
func (a *Assignment) ClearTStateFlags(mask Flags) { a.TState = a.TState.Clear(mask) }

// SetTState replaces Assignment.TState outright.
func (a *Assignment) SetTState(value Flags) { a.TState = value }

// Dead reports whether the Assignment qualifies for deletion: both
// cstate.DEPLOY and tstate.DEPLOY are clear (spec §3 lifetime rule).
func (a *Assignment) Dead() bool {
	return !a.CState.Has(FlagDeploy) && !a.TState.Has(FlagDeploy)
}

// AddVolumeState inserts vs under its VolID, preserving insertion order.
func (a *Assignment) AddVolumeState(vs *VolumeState) {
	if _, exists := a.VolStates[vs.VolID]; !exists {
		a.volOrder = append(a.volOrder, vs.VolID)
	}
	a.VolStates[vs.VolID] = vs
}

// RemoveVolumeState deletes the VolumeState with the given vol_id.
func (a *Assignment) RemoveVolumeState(volID int) {
	if _, exists := a.VolStates[volID]; !exists {
		return
	}
	delete(a.VolStates, volID)
	for i, id := range a.volOrder {
		if id == volID {
			a.volOrder = append(a.volOrder[:i], a.volOrder[i+1:]...)
			break
		}
	}
}

// VolumeStatesOrdered returns the Assignment's VolumeStates in insertion
// order.
func (a *Assignment) VolumeStatesOrdered() []*VolumeState {
	out := make([]*VolumeState, 0, len(a.volOrder))
	for _, id := range a.volOrder {
		out = append(out, a.VolStates[id])
	}
	return out
}

// VolumeState is an Assignment's per-volume cstate/tstate (spec §3).
type VolumeState struct {
	VolID      int
	CState     Flags
	TState     Flags
	BlockDevice string // backing device path, set once deployed
}

// NewVolumeState returns a VolumeState targeting the given volume.
func NewVolumeState(volID int) *VolumeState {
	return &VolumeState{VolID: volID}
}

// SetCStateFlags sets mask in VolumeState.CState.
func (vs *VolumeState) SetCStateFlags(mask Flags) { vs.CState = vs.CState.Set(mask) }

// ClearCStateFlags clears mask in VolumeState.CState.
func (vs *VolumeState) ClearCStateFlags(mask Flags) { vs.CState = vs.CState.Clear(mask) }

// SetTStateFlags sets mask in VolumeState.TState.
func (vs *VolumeState) SetTStateFlags(mask Flags) { vs.TState = vs.TState.Set(mask) }

// ClearTStateFlags clears mask in VolumeState.TState.
func (vs *VolumeState) ClearTStateFlags(mask Flags) { vs.TState = vs.TState.Clear(mask) }

// Dead reports whether both DEPLOY flags are clear (spec §3 removal
// rule for VolumeState).
func (vs *VolumeState) Dead() bool {
	return !vs.CState.Has(FlagDeploy) && !vs.TState.Has(FlagDeploy)
}

// Snapshot is a point-in-time identity (Resource, name) (spec §3),
// owning a map of SnapshotAssignment keyed by node name.
type Snapshot struct {
	ResName     string
	Name        string
	Props       *props.Container
	Assignments map[string]*SnapshotAssignment // keyed by node name
	nodeOrder   []string
}

// NewSnapshot returns a Snapshot with an empty property bag and no
// assignments.
func NewSnapshot(resName, name string) *Snapshot {
	return &Snapshot{
		ResName:     resName,
		Name:        name,
		Props:       props.New(),
		Assignments: make(map[string]*SnapshotAssignment),
	}
}

// AddAssignment inserts sa under its NodeName, preserving insertion
// order.
func (s *Snapshot) AddAssignment(sa *SnapshotAssignment) {
	if _, exists := s.Assignments[sa.NodeName]; !exists {
		s.nodeOrder = append(s.nodeOrder, sa.NodeName)
	}
	s.Assignments[sa.NodeName] = sa
}

// AssignmentsOrdered returns the Snapshot's SnapshotAssignments in
// insertion order.
func (s *Snapshot) AssignmentsOrdered() []*SnapshotAssignment {
	out := make([]*SnapshotAssignment, 0, len(s.nodeOrder))
	for _, name := range s.nodeOrder {
		out = append(out, s.Assignments[name])
	}
	return out
}

// SnapshotAssignment is a per-(Snapshot, Assignment) cstate/tstate pair
// (spec §3), owning per-volume SnapshotVolumeState.
type SnapshotAssignment struct {
	NodeName  string
	CState    Flags
	TState    Flags
	VolStates map[int]*SnapshotVolumeState
	volOrder  []int
}

// NewSnapshotAssignment returns a SnapshotAssignment for the given node.
func NewSnapshotAssignment(nodeName string) *SnapshotAssignment {
	return &SnapshotAssignment{
		NodeName:  nodeName,
		VolStates: make(map[int]*SnapshotVolumeState),
	}
}

// SetCStateFlags sets mask in SnapshotAssignment.CState.
func (sa *SnapshotAssignment) SetCStateFlags(mask Flags) { sa.CState = sa.CState.Set(mask) }

// SetTStateFlags sets mask in SnapshotAssignment.TState.
func (sa *SnapshotAssignment) SetTStateFlags(mask Flags) { sa.TState = sa.TState.Set(mask) }

// AddVolumeState inserts vs under its VolID, preserving insertion order.
func (sa *SnapshotAssignment) AddVolumeState(vs *SnapshotVolumeState) {
	if _, exists := sa.VolStates[vs.VolID]; !exists {
		sa.volOrder = append(sa.volOrder, vs.VolID)
	}
	sa.VolStates[vs.VolID] = vs
}

// VolumeStatesOrdered returns the SnapshotAssignment's per-volume states
// in insertion order.
func (sa *SnapshotAssignment) VolumeStatesOrdered() []*SnapshotVolumeState {
	out := make([]*SnapshotVolumeState, 0, len(sa.volOrder))
	for _, id := range sa.volOrder {
		out = append(out, sa.VolStates[id])
	}
	return out
}

// SnapshotVolumeState is a SnapshotAssignment's per-volume cstate/tstate
// (spec §3).
type SnapshotVolumeState struct {
	VolID  int
	CState Flags
	TState Flags
}

// NewSnapshotVolumeState returns a SnapshotVolumeState for the given
// volume.
func NewSnapshotVolumeState(volID int) *SnapshotVolumeState {
	return &SnapshotVolumeState{VolID: volID}
}
