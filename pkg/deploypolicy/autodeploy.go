package deploypolicy

import (
	"fmt"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// AutoDeploy implements the auto_deploy mutator (spec §8 S6): bring the
// number of full (non-diskless) replica Assignments for resName to
// count+delta, demoting the excess via policy rather than unassigning
// them outright when siteClients is set.
//
// It only mutates tstate; the reconciler (C8) carries the demotion out
// on its next pass. Demoted Assignments keep DEPLOY and CONNECT set and
// gain DISKLESS when siteClients is true; otherwise DEPLOY is cleared
// entirely, which the reconciler treats as an undeploy.
func AutoDeploy(cc *types.ClusterConfig, resName string, count, delta int, siteClients bool, policy Policy) error {
	if _, ok := cc.Resources[resName]; !ok {
		return fmt.Errorf("deploypolicy: resource %q not found", resName)
	}

	var full []*types.Assignment
	for _, a := range cc.AssignmentsForResource(resName) {
		if a.TState.Has(types.FlagDeploy) && !a.TState.Has(types.FlagDiskless) {
			full = append(full, a)
		}
	}

	target := count + delta
	if target < 0 {
		target = 0
	}
	if len(full) <= target {
		return nil
	}

	for _, a := range policy.SelectForDemotion(full, target) {
		if siteClients {
			a.SetTStateFlags(types.FlagDiskless)
		} else {
			a.ClearTStateFlags(types.FlagDeploy)
		}
	}
	return nil
}
