package reconciler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/drbdmanage/drbdmanaged/pkg/log"
	"github.com/drbdmanage/drbdmanaged/pkg/metrics"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// reconcileAssignment drives one local Assignment's cstate toward its
// tstate (spec §4.8 steps 1-5). It only ever touches the storage backend
// and admin tool for Assignments belonging to this daemon's own node;
// callers are responsible for that filtering (see Engine.performChanges).
//
// Returns whether any cstate bit changed, so the caller knows whether to
// raise a notify.Sink.NotifyChanged for this Assignment's path.
func (e *Engine) reconcileAssignment(ctx context.Context, res *types.Resource, a *types.Assignment) bool {
	alog := log.WithAssignment(res.Name, a.NodeName)
	switch {
	case a.Dead():
		// Step 1: nothing to reconcile; cleanup() removes it.
		return false
	case a.TState.Has(types.FlagDeploy) && !a.CState.Has(types.FlagDeploy):
		return e.deployAssignment(ctx, alog, res, a)
	case !a.TState.Has(types.FlagDeploy) && a.CState.Has(types.FlagDeploy):
		return e.undeployAssignment(ctx, alog, res, a)
	default:
		return e.reconcileDeployed(ctx, alog, res, a)
	}
}

// deployAssignment implements step 2: allocate backing devices, write
// the resource config, adjust, and only then mark cstate deployed.
func (e *Engine) deployAssignment(ctx context.Context, alog zerolog.Logger, res *types.Resource, a *types.Assignment) bool {
	for _, vs := range a.VolumeStatesOrdered() {
		if !vs.TState.Has(types.FlagDeploy) {
			continue
		}
		vol, ok := res.Volumes[vs.VolID]
		if !ok {
			continue
		}
		path, err := e.storage.CreateBlockdevice(ctx, res.Name, vs.VolID, vol.GrossSizeKiB)
		if err != nil {
			alog.Warn().Err(err).Int("vol_id", vs.VolID).
				Msg("allocate backing device failed")
			incrementFailureCount(a)
			metrics.ReconciliationFailuresTotal.WithLabelValues("allocate").Inc()
			return false
		}
		vs.BlockDevice = path
	}

	if err := e.writer.WriteResourceConfig(e.cc, res.Name); err != nil {
		alog.Warn().Err(err).Msg("write resource config failed")
		incrementFailureCount(a)
		metrics.ReconciliationFailuresTotal.WithLabelValues("admin").Inc()
		return false
	}

	code, err := e.adjust(ctx, res.Name, a)
	if err != nil || code != 0 {
		alog.Warn().Err(err).Int("exit_code", code).Msg("adjust failed during deploy")
		incrementFailureCount(a)
		metrics.ReconciliationFailuresTotal.WithLabelValues("admin").Inc()
		return false
	}

	a.SetCStateFlags(types.FlagDeploy)
	for _, vs := range a.VolumeStatesOrdered() {
		if vs.TState.Has(types.FlagDeploy) {
			vs.SetCStateFlags(types.FlagDeploy)
		}
	}
	return true
}

// undeployAssignment implements step 3: disconnect, down, release backing
// devices, unlink the config file, then clear cstate.
func (e *Engine) undeployAssignment(ctx context.Context, alog zerolog.Logger, res *types.Resource, a *types.Assignment) bool {
	for _, peer := range e.cc.AssignmentsForResource(res.Name) {
		if peer.NodeName == a.NodeName {
			continue
		}
		if code, err := e.tool.Disconnect(ctx, res.Name, peer.NodeName); err != nil || code != 0 {
			alog.Debug().Err(err).Int("exit_code", code).Str("peer", peer.NodeName).
				Msg("disconnect during undeploy reported a failure; continuing")
		}
	}

	if code, err := e.tool.Down(ctx, res.Name); err != nil || code != 0 {
		alog.Warn().Err(err).Int("exit_code", code).Msg("down failed")
		incrementFailureCount(a)
		metrics.ReconciliationFailuresTotal.WithLabelValues("admin").Inc()
		return false
	}

	for _, vs := range a.VolumeStatesOrdered() {
		if err := e.storage.RemoveBlockdevice(ctx, res.Name, vs.VolID); err != nil {
			alog.Warn().Err(err).Int("vol_id", vs.VolID).
				Msg("remove backing device failed")
			incrementFailureCount(a)
			metrics.ReconciliationFailuresTotal.WithLabelValues("allocate").Inc()
			return false
		}
		vs.BlockDevice = ""
	}

	if err := e.writer.RemoveResourceConfig(res.Name); err != nil {
		alog.Warn().Err(err).Msg("remove resource config failed")
		incrementFailureCount(a)
		metrics.ReconciliationFailuresTotal.WithLabelValues("admin").Inc()
		return false
	}

	a.ClearCStateFlags(types.FlagDeploy)
	for _, vs := range a.VolumeStatesOrdered() {
		vs.ClearCStateFlags(types.FlagDeploy)
	}
	return true
}

// reconcileDeployed implements step 4: per-volume attach/detach, per-peer
// connect/disconnect, and a config rewrite + adjust whenever anything
// changed.
func (e *Engine) reconcileDeployed(ctx context.Context, alog zerolog.Logger, res *types.Resource, a *types.Assignment) bool {
	changed := false

	if !a.TState.Has(types.FlagDiskless) {
		for _, vs := range a.VolumeStatesOrdered() {
			desired := vs.TState.Has(types.FlagAttach)
			current := vs.CState.Has(types.FlagAttach)
			if desired == current {
				continue
			}
			var code int
			var err error
			if desired {
				code, err = e.tool.Attach(ctx, res.Name, vs.VolID)
			} else {
				code, err = e.tool.Detach(ctx, res.Name, vs.VolID)
			}
			if err != nil || code != 0 {
				alog.Warn().Err(err).Int("exit_code", code).Int("vol_id", vs.VolID).
					Msg("attach/detach failed")
				incrementFailureCount(a)
				metrics.ReconciliationFailuresTotal.WithLabelValues("attach").Inc()
				continue
			}
			if desired {
				vs.SetCStateFlags(types.FlagAttach)
			} else {
				vs.ClearCStateFlags(types.FlagAttach)
			}
			changed = true
		}
	}

	connectDesired := a.TState.Has(types.FlagConnect)
	connectCurrent := a.CState.Has(types.FlagConnect)
	if connectDesired != connectCurrent {
		ok := true
		for _, peer := range e.cc.AssignmentsForResource(res.Name) {
			if peer.NodeName == a.NodeName {
				continue
			}
			var code int
			var err error
			switch {
			case connectDesired && a.TState.Has(types.FlagDiscard):
				code, err = e.tool.ConnectDiscard(ctx, res.Name, peer.NodeName)
			case connectDesired:
				code, err = e.tool.Connect(ctx, res.Name, peer.NodeName)
			default:
				code, err = e.tool.Disconnect(ctx, res.Name, peer.NodeName)
			}
			if err != nil || code != 0 {
				alog.Warn().Err(err).Int("exit_code", code).Str("peer", peer.NodeName).
					Msg("connect/disconnect failed")
				ok = false
			}
		}
		if ok {
			if connectDesired {
				a.SetCStateFlags(types.FlagConnect)
			} else {
				a.ClearCStateFlags(types.FlagConnect)
			}
			changed = true
		} else {
			incrementFailureCount(a)
			metrics.ReconciliationFailuresTotal.WithLabelValues("connect").Inc()
		}
	}

	if changed {
		if err := e.writer.WriteResourceConfig(e.cc, res.Name); err != nil {
			alog.Warn().Err(err).Msg("rewrite resource config failed")
			incrementFailureCount(a)
			metrics.ReconciliationFailuresTotal.WithLabelValues("admin").Inc()
			return changed
		}
		if code, err := e.adjust(ctx, res.Name, a); err != nil || code != 0 {
			alog.Warn().Err(err).Int("exit_code", code).Msg("adjust failed after topology change")
			incrementFailureCount(a)
			metrics.ReconciliationFailuresTotal.WithLabelValues("admin").Inc()
		}
	}

	return changed
}

// adjust runs drbdadm adjust, using --force when the Assignment carries
// OVERWRITE (spec §4.8 step 5).
func (e *Engine) adjust(ctx context.Context, resName string, a *types.Assignment) (int, error) {
	if a.TState.Has(types.FlagOverwrite) {
		return e.tool.AdjustForce(ctx, resName)
	}
	return e.tool.Adjust(ctx, resName)
}
