package server

import (
	"context"

	"github.com/drbdmanage/drbdmanaged/pkg/rpcshape"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// ListNodes returns every Node in the cluster.
func (s *Server) ListNodes(ctx context.Context) []rpcshape.NodePayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]rpcshape.NodePayload, 0, len(s.cc.Nodes))
	for _, n := range s.cc.NodesOrdered() {
		out = append(out, rpcshape.NodePayload{
			Name:  n.Name,
			Props: n.Props.Map(),
		})
	}
	return out
}

// ListResources returns every Resource, including its Volumes when
// withVolumes is set (spec §6's payload shape).
func (s *Server) ListResources(ctx context.Context, withVolumes bool) []rpcshape.ResourcePayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]rpcshape.ResourcePayload, 0, len(s.cc.Resources))
	for _, r := range s.cc.ResourcesOrdered() {
		rp := rpcshape.ResourcePayload{
			Name:  r.Name,
			Props: r.Props.Map(),
		}
		if withVolumes {
			for _, v := range r.VolumesOrdered() {
				rp.Volumes = append(rp.Volumes, rpcshape.VolumePayload{
					ID:    v.VolID,
					Props: v.Props.Map(),
				})
			}
		}
		out = append(out, rp)
	}
	return out
}

// ListAssignments returns every Assignment in the cluster.
func (s *Server) ListAssignments(ctx context.Context) []rpcshape.AssignmentPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []rpcshape.AssignmentPayload
	for _, r := range s.cc.ResourcesOrdered() {
		for _, a := range s.cc.AssignmentsForResource(r.Name) {
			out = append(out, assignmentPayload(a))
		}
	}
	return out
}

func assignmentPayload(a *types.Assignment) rpcshape.AssignmentPayload {
	ap := rpcshape.AssignmentPayload{
		NodeName: a.NodeName,
		ResName:  a.ResName,
		CState:   uint32(a.CState),
		TState:   uint32(a.TState),
		Props:    a.Props.Map(),
	}
	for _, vs := range a.VolumeStatesOrdered() {
		ap.VolumeStates = append(ap.VolumeStates, rpcshape.VolumeStatePayload{
			VolID:  vs.VolID,
			CState: uint32(vs.CState),
			TState: uint32(vs.TState),
		})
	}
	return ap
}

// ListSnapshotAssignments returns every SnapshotAssignment of every
// Snapshot across the cluster.
func (s *Server) ListSnapshotAssignments(ctx context.Context) []rpcshape.SnapshotAssignmentPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []rpcshape.SnapshotAssignmentPayload
	for _, r := range s.cc.ResourcesOrdered() {
		for _, snap := range r.SnapshotsOrdered() {
			for _, sa := range snap.AssignmentsOrdered() {
				sp := rpcshape.SnapshotAssignmentPayload{
					NodeName: sa.NodeName,
					ResName:  r.Name,
					SnapName: snap.Name,
					CState:   uint32(sa.CState),
					TState:   uint32(sa.TState),
				}
				for _, vs := range sa.VolumeStatesOrdered() {
					sp.VolumeStates = append(sp.VolumeStates, rpcshape.SnapshotVolumeStatePayload{
						VolID:  vs.VolID,
						CState: uint32(vs.CState),
						TState: uint32(vs.TState),
					})
				}
				out = append(out, sp)
			}
		}
	}
	return out
}
