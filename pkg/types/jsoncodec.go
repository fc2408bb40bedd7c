package types

import (
	"encoding/json"
	"sort"

	"github.com/drbdmanage/drbdmanaged/pkg/props"
)

func jsonMarshal(v interface{}) ([]byte, error)        { return json.Marshal(v) }
func jsonUnmarshal(data []byte, v interface{}) error   { return json.Unmarshal(data, v) }

// Deterministic JSON encodings for every entity that owns insertion-
// ordered children kept in Go maps, so the serialized image — and
// therefore the C4 content hash — depends only on content, never on map
// iteration order (spec §3 invariant 7). Volume, VolumeState and
// SnapshotVolumeState carry no such children and are left to encoding/
// json's default struct marshaling; props.Container marshals itself via
// its own ordered-array MarshalJSON/UnmarshalJSON.

type nodeWire struct {
	Name        string           `json:"name"`
	Addr        string           `json:"addr"`
	NodeID      int              `json:"node_id"`
	PoolSizeKiB int64            `json:"poolsize_kib"`
	PoolFreeKiB int64            `json:"poolfree_kib"`
	State       Flags            `json:"state"`
	Props       *props.Container `json:"props"`
	Assignments []string         `json:"assignments"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return jsonMarshal(nodeWire{
		Name: n.Name, Addr: n.Addr, NodeID: n.NodeID,
		PoolSizeKiB: n.PoolSizeKiB, PoolFreeKiB: n.PoolFreeKiB,
		State: n.State, Props: n.Props, Assignments: sortedNames(n.Assignments),
	})
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := jsonUnmarshal(data, &w); err != nil {
		return err
	}
	n.Name, n.Addr, n.NodeID = w.Name, w.Addr, w.NodeID
	n.PoolSizeKiB, n.PoolFreeKiB, n.State = w.PoolSizeKiB, w.PoolFreeKiB, w.State
	n.Props = w.Props
	n.Assignments = w.Assignments
	return nil
}

type resourceWire struct {
	Name        string           `json:"name"`
	Port        int              `json:"port"`
	Secret      string           `json:"secret"`
	State       Flags            `json:"state"`
	Props       *props.Container `json:"props"`
	Volumes     []*Volume        `json:"volumes"`
	Snapshots   []*Snapshot      `json:"snapshots"`
	Assignments []string         `json:"assignments"`
}

func (r *Resource) MarshalJSON() ([]byte, error) {
	return jsonMarshal(resourceWire{
		Name: r.Name, Port: r.Port, Secret: r.Secret, State: r.State,
		Props: r.Props, Volumes: r.VolumesOrdered(), Snapshots: r.SnapshotsOrdered(),
		Assignments: sortedNames(r.Assignments),
	})
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var w resourceWire
	if err := jsonUnmarshal(data, &w); err != nil {
		return err
	}
	r.Name, r.Port, r.Secret, r.State = w.Name, w.Port, w.Secret, w.State
	r.Props = w.Props
	r.Assignments = w.Assignments
	r.Volumes = make(map[int]*Volume)
	r.volOrder = nil
	for _, v := range w.Volumes {
		r.AddVolume(v)
	}
	r.Snapshots = make(map[string]*Snapshot)
	r.snapOrder = nil
	for _, s := range w.Snapshots {
		r.AddSnapshot(s)
	}
	return nil
}

type assignmentWire struct {
	NodeName  string               `json:"node_name"`
	ResName   string               `json:"res_name"`
	NodeID    int                  `json:"node_id"`
	CState    Flags                `json:"cstate"`
	TState    Flags                `json:"tstate"`
	Props     *props.Container     `json:"props"`
	VolStates []*VolumeState       `json:"vol_states"`
}

func (a *Assignment) MarshalJSON() ([]byte, error) {
	return jsonMarshal(assignmentWire{
		NodeName: a.NodeName, ResName: a.ResName, NodeID: a.NodeID,
		CState: a.CState, TState: a.TState, Props: a.Props,
		VolStates: a.VolumeStatesOrdered(),
	})
}

func (a *Assignment) UnmarshalJSON(data []byte) error {
	var w assignmentWire
	if err := jsonUnmarshal(data, &w); err != nil {
		return err
	}
	a.NodeName, a.ResName, a.NodeID = w.NodeName, w.ResName, w.NodeID
	a.CState, a.TState, a.Props = w.CState, w.TState, w.Props
	a.VolStates = make(map[int]*VolumeState)
	a.volOrder = nil
	for _, vs := range w.VolStates {
		a.AddVolumeState(vs)
	}
	return nil
}

type snapshotWire struct {
	ResName     string                `json:"res_name"`
	Name        string                `json:"name"`
	Props       *props.Container      `json:"props"`
	Assignments []*SnapshotAssignment `json:"assignments"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return jsonMarshal(snapshotWire{
		ResName: s.ResName, Name: s.Name, Props: s.Props,
		Assignments: s.AssignmentsOrdered(),
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotWire
	if err := jsonUnmarshal(data, &w); err != nil {
		return err
	}
	s.ResName, s.Name, s.Props = w.ResName, w.Name, w.Props
	s.Assignments = make(map[string]*SnapshotAssignment)
	s.nodeOrder = nil
	for _, sa := range w.Assignments {
		s.AddAssignment(sa)
	}
	return nil
}

type snapshotAssignmentWire struct {
	NodeName  string                 `json:"node_name"`
	CState    Flags                  `json:"cstate"`
	TState    Flags                  `json:"tstate"`
	VolStates []*SnapshotVolumeState `json:"vol_states"`
}

func (sa *SnapshotAssignment) MarshalJSON() ([]byte, error) {
	return jsonMarshal(snapshotAssignmentWire{
		NodeName: sa.NodeName, CState: sa.CState, TState: sa.TState,
		VolStates: sa.VolumeStatesOrdered(),
	})
}

func (sa *SnapshotAssignment) UnmarshalJSON(data []byte) error {
	var w snapshotAssignmentWire
	if err := jsonUnmarshal(data, &w); err != nil {
		return err
	}
	sa.NodeName, sa.CState, sa.TState = w.NodeName, w.CState, w.TState
	sa.VolStates = make(map[int]*SnapshotVolumeState)
	sa.volOrder = nil
	for _, vs := range w.VolStates {
		sa.AddVolumeState(vs)
	}
	return nil
}

// clusterConfigWire is the on-disk image persisted by pkg/persistence:
// Nodes/Resources as ordered arrays (each already self-describing its
// own Assignment reference list), plus the central Assignment store as
// an ordered array keyed implicitly by (NodeName, ResName) fields
// already present on each Assignment.
type clusterConfigWire struct {
	Serial      uint64        `json:"serial"`
	Nodes       []*Node       `json:"nodes"`
	Resources   []*Resource   `json:"resources"`
	Assignments []*Assignment `json:"assignments"`
}

// MarshalJSON encodes the whole cluster image deterministically: nodes
// and resources in insertion order, assignments sorted by (NodeName,
// ResName) so the byte image never depends on Go map iteration order
// (spec §3 invariant 7).
func (cc *ClusterConfig) MarshalJSON() ([]byte, error) {
	assignments := make([]*Assignment, 0, len(cc.Assignments))
	for _, a := range cc.Assignments {
		assignments = append(assignments, a)
	}
	sortAssignments(assignments)
	return jsonMarshal(clusterConfigWire{
		Serial:      cc.Serial,
		Nodes:       cc.NodesOrdered(),
		Resources:   cc.ResourcesOrdered(),
		Assignments: assignments,
	})
}

// UnmarshalJSON replaces cc's contents with the decoded image, rebuilding
// the nodeOrder/resOrder slices and rethreading Assignment references.
func (cc *ClusterConfig) UnmarshalJSON(data []byte) error {
	var w clusterConfigWire
	if err := jsonUnmarshal(data, &w); err != nil {
		return err
	}
	cc.Serial = w.Serial
	cc.Nodes = make(map[string]*Node)
	cc.nodeOrder = nil
	for _, n := range w.Nodes {
		n.Assignments = nil
		cc.AddNode(n)
	}
	cc.Resources = make(map[string]*Resource)
	cc.resOrder = nil
	for _, r := range w.Resources {
		r.Assignments = nil
		cc.AddResource(r)
	}
	cc.Assignments = make(map[AssignmentKey]*Assignment)
	for _, a := range w.Assignments {
		cc.AddAssignment(a)
	}
	return nil
}

// sortedNames returns a sorted copy of an Assignment reference list, the
// same order UnmarshalJSON's rethreading produces.
func sortedNames(list []string) []string {
	out := append([]string(nil), list...)
	sort.Strings(out)
	return out
}

func sortAssignments(list []*Assignment) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0; j-- {
			a, b := list[j-1].Key(), list[j].Key()
			if a.NodeName < b.NodeName || (a.NodeName == b.NodeName && a.ResName <= b.ResName) {
				break
			}
			list[j-1], list[j] = list[j], list[j-1]
		}
	}
}
