package server

import (
	"context"
	"fmt"

	"github.com/drbdmanage/drbdmanaged/pkg/idalloc"
	"github.com/drbdmanage/drbdmanaged/pkg/props"
	"github.com/drbdmanage/drbdmanaged/pkg/rc"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// CreateNode adds a Node to the cluster, allocating its control-resource
// node_id automatically (spec §4.3 "Node IDs (for the control
// resource)").
func (s *Server) CreateNode(ctx context.Context, name, addr string, propsIn map[string]string) rc.List {
	return s.txn(ctx, "create_node", true, func(result *rc.List) bool {
		if err := validateName(name); err != nil {
			result.Add(rc.ENAME, err.Error())
			return false
		}
		if err := validateAddr(addr); err != nil {
			result.Add(rc.EINVAL, err.Error())
			return false
		}
		if _, exists := s.cc.Nodes[name]; exists {
			result.Add(rc.EEXIST, fmt.Sprintf("node %q already exists", name))
			return false
		}

		nodeID := idalloc.ControlNodeID(s.cfg.MaxNodeID, usedControlNodeIDs(s.cc))
		if nodeID == idalloc.ErrExhausted {
			result.Add(rc.ENODEID, "no free control-resource node_id in configured range")
			return false
		}

		n := types.NewNode(name, addr, nodeID)
		n.Props.MergeGen(props.Select(propsIn))
		s.cc.AddNode(n)
		return true
	})
}

// ModifyNode updates a Node's aux properties.
func (s *Server) ModifyNode(ctx context.Context, name string, propsIn map[string]string) rc.List {
	return s.txn(ctx, "modify_node", true, func(result *rc.List) bool {
		n, ok := s.cc.Nodes[name]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("node %q not found", name))
			return false
		}
		n.Props.MergeGen(props.Select(propsIn))
		return true
	})
}

// RemoveNode marks a Node for removal (spec §3 invariant 6): sets
// state.REMOVE and flips tstate.DEPLOY off on every Assignment bound to
// it. Actual deletion happens during the next reconcile cycle's cleanup
// once cstate.DEPLOY reaches 0 on all of them.
func (s *Server) RemoveNode(ctx context.Context, name string) rc.List {
	return s.txn(ctx, "remove_node", true, func(result *rc.List) bool {
		n, ok := s.cc.Nodes[name]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("node %q not found", name))
			return false
		}
		n.SetStateFlags(types.NodeRemove)
		for _, a := range s.cc.AssignmentsForNode(name) {
			a.ClearTStateFlags(types.FlagDeploy)
		}
		return true
	})
}
