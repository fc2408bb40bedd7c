package reconciler

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/drbdmanage/drbdmanaged/pkg/notify"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// cleanup implements the garbage-collection pass (spec §4.8's "cleanup"):
// it removes every entity whose lifetime has ended and raises a
// notify.Removed for each one. It is idempotent — a second call in a row
// with nothing newly eligible makes no further changes (spec invariant
// P4).
func (e *Engine) cleanup(logger zerolog.Logger) {
	e.cleanupAssignments(logger)
	e.cleanupVolumeStates(logger)
	e.cleanupNodes(logger)
	e.cleanupVolumes(logger)
	e.cleanupResources(logger)
}

// cleanupAssignments deletes Assignments whose cstate and tstate have
// both gone to DEPLOY=0.
func (e *Engine) cleanupAssignments(logger zerolog.Logger) {
	for _, res := range e.cc.ResourcesOrdered() {
		for _, a := range e.cc.AssignmentsForResource(res.Name) {
			if !a.Dead() {
				continue
			}
			e.cc.RemoveAssignment(a.Key())
			logger.Info().Str("resource", res.Name).Str("node", a.NodeName).Msg("assignment garbage-collected")
			path := "/resources/" + res.Name + "/assignments/" + a.NodeName
			notify.NewSink(e.broker, path).NotifyRemoved()
		}
	}
}

// cleanupVolumeStates deletes VolumeStates whose cstate and tstate both
// went to DEPLOY=0, independent of whether the whole Assignment survives.
func (e *Engine) cleanupVolumeStates(logger zerolog.Logger) {
	for _, res := range e.cc.ResourcesOrdered() {
		for _, a := range e.cc.AssignmentsForResource(res.Name) {
			for _, vs := range a.VolumeStatesOrdered() {
				if !vs.Dead() {
					continue
				}
				a.RemoveVolumeState(vs.VolID)
				logger.Info().Str("resource", res.Name).Str("node", a.NodeName).Int("vol_id", vs.VolID).
					Msg("volume state garbage-collected")
				path := "/resources/" + res.Name + "/assignments/" + a.NodeName + "/volumes/" + strconv.Itoa(vs.VolID)
				notify.NewSink(e.broker, path).NotifyRemoved()
			}
		}
	}
}

// cleanupNodes deletes Nodes marked state.REMOVE once every Assignment
// bound to them is gone, then regenerates and adjusts the control
// resource so its membership list stays in sync.
func (e *Engine) cleanupNodes(logger zerolog.Logger) {
	removedAny := false
	for _, n := range e.cc.NodesOrdered() {
		if !n.State.Has(types.NodeRemove) {
			continue
		}
		if len(e.cc.AssignmentsForNode(n.Name)) > 0 {
			continue
		}
		e.cc.RemoveNode(n.Name)
		removedAny = true
		logger.Info().Str("node", n.Name).Msg("node garbage-collected")
		notify.NewSink(e.broker, "/nodes/"+n.Name).NotifyRemoved()
	}
	if removedAny {
		if err := e.adjustDrbdctrl(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("control volume adjust after node removal failed")
		}
	}
}

// cleanupVolumes deletes Volumes marked state.REMOVE once no peer
// Assignment still has that volume deployed.
func (e *Engine) cleanupVolumes(logger zerolog.Logger) {
	for _, res := range e.cc.ResourcesOrdered() {
		for _, vol := range res.VolumesOrdered() {
			if !vol.State.Has(types.EntityRemove) {
				continue
			}
			if volumeStillDeployed(e.cc, res.Name, vol.VolID) {
				continue
			}
			res.RemoveVolume(vol.VolID)
			logger.Info().Str("resource", res.Name).Int("vol_id", vol.VolID).Msg("volume garbage-collected")
			notify.NewSink(e.broker, "/resources/"+res.Name+"/volumes/"+strconv.Itoa(vol.VolID)).NotifyRemoved()
		}
	}
}

func volumeStillDeployed(cc *types.ClusterConfig, resName string, volID int) bool {
	for _, a := range cc.AssignmentsForResource(resName) {
		for _, vs := range a.VolumeStatesOrdered() {
			if vs.VolID == volID && vs.CState.Has(types.FlagDeploy) {
				return true
			}
		}
	}
	return false
}

// cleanupResources deletes Resources marked state.REMOVE once no
// Assignment references them anymore.
func (e *Engine) cleanupResources(logger zerolog.Logger) {
	for _, res := range e.cc.ResourcesOrdered() {
		if !res.State.Has(types.EntityRemove) {
			continue
		}
		if len(e.cc.AssignmentsForResource(res.Name)) > 0 {
			continue
		}
		e.cc.RemoveResource(res.Name)
		logger.Info().Str("resource", res.Name).Msg("resource garbage-collected")
		notify.NewSink(e.broker, "/resources/"+res.Name).NotifyRemoved()
	}
}
