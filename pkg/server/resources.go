package server

import (
	"context"
	"fmt"

	"github.com/drbdmanage/drbdmanaged/pkg/idalloc"
	"github.com/drbdmanage/drbdmanaged/pkg/props"
	"github.com/drbdmanage/drbdmanaged/pkg/rc"
	"github.com/drbdmanage/drbdmanaged/pkg/secretgen"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// CreateResource creates a Resource, allocating its TCP port from the
// configured range when port is types.ResPortAuto, and generating its
// shared secret (§3 Resource.Secret).
func (s *Server) CreateResource(ctx context.Context, name string, port int, propsIn map[string]string) rc.List {
	return s.txn(ctx, "create_resource", true, func(result *rc.List) bool {
		if err := validateName(name); err != nil {
			result.Add(rc.ENAME, err.Error())
			return false
		}
		if _, exists := s.cc.Resources[name]; exists {
			result.Add(rc.EEXIST, fmt.Sprintf("resource %q already exists", name))
			return false
		}

		allocatedPort := port
		if port == types.ResPortAuto {
			allocatedPort = idalloc.ResourcePort(s.cfg.MinPortNr, s.cfg.MaxPortNr, usedPorts(s.cc))
			if allocatedPort == idalloc.ErrExhausted {
				result.Add(rc.EPORT, "no free port in configured range")
				return false
			}
		} else if allocatedPort < 1 || allocatedPort > 65535 {
			result.Add(rc.EPORT, fmt.Sprintf("port %d out of range [1,65535]", allocatedPort))
			return false
		}

		secret, err := secretgen.New()
		if err != nil {
			result.Add(rc.ESECRETG, err.Error())
			return false
		}

		res := types.NewResource(name, allocatedPort, secret)
		res.Props.MergeGen(props.Select(propsIn))
		s.cc.AddResource(res)
		return true
	})
}

// ModifyResource updates a Resource's aux properties. Per spec §9's
// design-note fix for the original's nested-assignment bug, every key is
// validated before any is applied, and the save happens exactly once
// outside any per-key loop — which props.Select already guarantees by
// construction, since it filters the whole input map in one pass.
func (s *Server) ModifyResource(ctx context.Context, name string, propsIn map[string]string) rc.List {
	return s.txn(ctx, "modify_resource", true, func(result *rc.List) bool {
		res, ok := s.cc.Resources[name]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", name))
			return false
		}
		res.Props.MergeGen(props.Select(propsIn))
		return true
	})
}

// RemoveResource marks a Resource for removal. Actual deletion happens
// during the next reconcile cycle's cleanup once every Assignment of it
// has been undeployed and garbage-collected.
func (s *Server) RemoveResource(ctx context.Context, name string) rc.List {
	return s.txn(ctx, "remove_resource", true, func(result *rc.List) bool {
		res, ok := s.cc.Resources[name]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", name))
			return false
		}
		res.SetStateFlags(types.EntityRemove)
		for _, a := range s.cc.AssignmentsForResource(name) {
			a.ClearTStateFlags(types.FlagDeploy)
		}
		return true
	})
}

// CreateVolume adds a Volume to a Resource, allocating its vol_id and
// minor number automatically.
func (s *Server) CreateVolume(ctx context.Context, resName string, sizeKiB int64, propsIn map[string]string) rc.List {
	return s.txn(ctx, "create_volume", true, func(result *rc.List) bool {
		res, ok := s.cc.Resources[resName]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", resName))
			return false
		}
		if sizeKiB <= 0 {
			result.Add(rc.EVOLSZ, "volume size must be positive")
			return false
		}

		volID := idalloc.VolumeID(types.MaxResVols, usedVolIDs(res))
		if volID == idalloc.ErrExhausted {
			result.Add(rc.EVOLID, fmt.Sprintf("no free vol_id in [0,%d] for resource %q", types.MaxResVols, resName))
			return false
		}
		minorNr := idalloc.MinorNr(s.cfg.MinMinorNr, types.MinorNrMax, usedMinors(s.cc))
		if minorNr == idalloc.ErrExhausted {
			result.Add(rc.EMINOR, "no free minor number in configured range")
			return false
		}

		vol := types.NewVolume(volID, sizeKiB, minorNr)
		vol.Props.MergeGen(props.Select(propsIn))
		res.AddVolume(vol)
		return true
	})
}

// ModifyVolume updates a Volume's aux properties (§9 supplemented
// feature: the original returns ENOTIMPL here, but §3-§4 give this
// entity the same property-bag contract as every other).
func (s *Server) ModifyVolume(ctx context.Context, resName string, volID int, propsIn map[string]string) rc.List {
	return s.txn(ctx, "modify_volume", true, func(result *rc.List) bool {
		res, ok := s.cc.Resources[resName]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", resName))
			return false
		}
		vol, ok := res.Volumes[volID]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("volume %d not found on resource %q", volID, resName))
			return false
		}
		vol.Props.MergeGen(props.Select(propsIn))
		return true
	})
}

// ResizeVolume grows a Volume's size (§9 supplemented feature): shrinking
// is rejected as EVOLSZ. The backing device is extended and the DRBD
// device resized synchronously, scoped to this daemon's own Assignment,
// rather than deferred to the reconciler, since C8's per-Assignment
// algorithm has no size-change step of its own.
func (s *Server) ResizeVolume(ctx context.Context, resName string, volID int, newSizeKiB int64) rc.List {
	return s.txn(ctx, "resize_volume", true, func(result *rc.List) bool {
		res, ok := s.cc.Resources[resName]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", resName))
			return false
		}
		vol, ok := res.Volumes[volID]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("volume %d not found on resource %q", volID, resName))
			return false
		}
		if newSizeKiB <= vol.GrossSizeKiB {
			result.Add(rc.EVOLSZ, fmt.Sprintf("new size %d kiB must exceed current size %d kiB: shrinking is not supported", newSizeKiB, vol.GrossSizeKiB))
			return false
		}

		if a, ok := s.cc.GetAssignment(s.localNode, resName); ok && a.CState.Has(types.FlagDeploy) {
			if err := s.backend.ExtendBlockdevice(ctx, resName, volID, newSizeKiB); err != nil {
				result.Add(rc.ESTORAGE, fmt.Sprintf("extend backing device: %v", err))
				return false
			}
			if code, err := s.tool.Resize(ctx, resName, volID); err != nil || code != 0 {
				result.Add(rc.ECTRLVOL, fmt.Sprintf("drbdadm resize %s/%d: exit=%d err=%v", resName, volID, code, err))
				return false
			}
		}

		vol.GrossSizeKiB = newSizeKiB
		vol.NetSizeKiB = newSizeKiB
		return true
	})
}

// RemoveVolume marks a Volume for removal. Actual deletion happens
// during the next reconcile cycle's cleanup once no peer still has it
// deployed.
func (s *Server) RemoveVolume(ctx context.Context, resName string, volID int) rc.List {
	return s.txn(ctx, "remove_volume", true, func(result *rc.List) bool {
		res, ok := s.cc.Resources[resName]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", resName))
			return false
		}
		vol, ok := res.Volumes[volID]
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("volume %d not found on resource %q", volID, resName))
			return false
		}
		vol.SetStateFlags(types.EntityRemove)
		for _, a := range s.cc.AssignmentsForResource(resName) {
			if vs, ok := a.VolStates[volID]; ok {
				vs.ClearTStateFlags(types.FlagDeploy)
			}
		}
		return true
	})
}
