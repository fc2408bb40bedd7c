package server

import (
	"context"
	"fmt"

	"github.com/drbdmanage/drbdmanaged/pkg/idalloc"
	"github.com/drbdmanage/drbdmanaged/pkg/props"
	"github.com/drbdmanage/drbdmanaged/pkg/rc"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// Assign creates an Assignment of resName on nodeName (spec §8 S1):
// tstate.DEPLOY and tstate.CONNECT are set, one VolumeState with
// tstate.DEPLOY=1 is created per existing Volume, and a per-resource
// node_id is allocated.
func (s *Server) Assign(ctx context.Context, nodeName, resName string, propsIn map[string]string) rc.List {
	return s.txn(ctx, "assign", true, func(result *rc.List) bool {
		if _, ok := s.cc.Nodes[nodeName]; !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("node %q not found", nodeName))
			return false
		}
		res, ok := s.cc.Resources[resName]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", resName))
			return false
		}
		if _, exists := s.cc.GetAssignment(nodeName, resName); exists {
			result.Add(rc.EEXIST, fmt.Sprintf("assignment (%s,%s) already exists", nodeName, resName))
			return false
		}

		nodeID := idalloc.ResourceNodeID(s.cfg.MaxNodeID, usedResourceNodeIDs(s.cc, resName))
		if nodeID == idalloc.ErrExhausted {
			result.Add(rc.ENODEID, fmt.Sprintf("no free per-resource node_id in configured range for %q", resName))
			return false
		}

		a := types.NewAssignment(nodeName, resName, nodeID)
		a.SetTStateFlags(types.FlagDeploy | types.FlagConnect)
		a.Props.MergeGen(props.Select(propsIn))
		for _, vol := range res.VolumesOrdered() {
			vs := types.NewVolumeState(vol.VolID)
			vs.SetTStateFlags(types.FlagDeploy)
			a.AddVolumeState(vs)
		}
		s.cc.AddAssignment(a)
		return true
	})
}

// Unassign requests the undeploy of an Assignment (spec §8 S5):
// tstate.DEPLOY (and every other tstate flag) is cleared immediately,
// leaving cstate untouched; the reconciler carries out the actual
// teardown and garbage-collects the Assignment on a later pass. force
// additionally drops every VolumeState's tstate.DEPLOY, skipping the
// graceful per-volume detach a plain unassign would otherwise still let
// the reconciler attempt before the final down.
func (s *Server) Unassign(ctx context.Context, nodeName, resName string, force bool) rc.List {
	return s.txn(ctx, "unassign", true, func(result *rc.List) bool {
		a, ok := s.cc.GetAssignment(nodeName, resName)
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("assignment (%s,%s) not found", nodeName, resName))
			return false
		}
		a.SetTState(0)
		if force {
			for _, vs := range a.VolumeStatesOrdered() {
				vs.SetTState(0)
			}
		}
		return true
	})
}

// ModifyAssignment applies setMask/clearMask to an Assignment's tstate
// (spec §4.2's set_flags/clear_flags contract). OVERWRITE exclusivity
// (§3 invariant 5) is enforced here, not in pkg/types: OVERWRITE combined
// with DISKLESS or DISCARD in the same call is EINVAL with no state
// changed (§8 S2); otherwise setting OVERWRITE clears it on every peer
// Assignment of the same Resource.
func (s *Server) ModifyAssignment(ctx context.Context, nodeName, resName string, setMask, clearMask types.Flags) rc.List {
	return s.txn(ctx, "modify_assignment", true, func(result *rc.List) bool {
		a, ok := s.cc.GetAssignment(nodeName, resName)
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("assignment (%s,%s) not found", nodeName, resName))
			return false
		}

		next := a.TState.Set(setMask).Clear(clearMask)
		if next.Has(types.FlagOverwrite) && next.Has(types.FlagDiskless) {
			result.Add(rc.EINVAL, "OVERWRITE and DISKLESS are mutually exclusive")
			return false
		}
		if next.Has(types.FlagOverwrite) && next.Has(types.FlagDiscard) {
			result.Add(rc.EINVAL, "OVERWRITE and DISCARD are mutually exclusive")
			return false
		}

		if next.Has(types.FlagOverwrite) && !a.TState.Has(types.FlagOverwrite) {
			for _, peer := range s.cc.AssignmentsForResource(resName) {
				if peer.NodeName != nodeName {
					peer.ClearTStateFlags(types.FlagOverwrite)
				}
			}
		}
		a.SetTState(next)
		return true
	})
}

// Connect requests that an Assignment's peer connections be (re)brought
// up, setting tstate.CONNECT. It is idempotent: calling it on an
// Assignment that already has CONNECT set is a no-op save.
func (s *Server) Connect(ctx context.Context, nodeName, resName string) rc.List {
	return s.txn(ctx, "connect", true, func(result *rc.List) bool {
		a, ok := s.cc.GetAssignment(nodeName, resName)
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("assignment (%s,%s) not found", nodeName, resName))
			return false
		}
		if a.TState.Has(types.FlagConnect) {
			return false
		}
		a.SetTStateFlags(types.FlagConnect)
		return true
	})
}
