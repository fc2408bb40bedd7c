package server

import (
	"context"
	"fmt"

	"github.com/drbdmanage/drbdmanaged/pkg/admin"
	"github.com/drbdmanage/drbdmanaged/pkg/config"
	"github.com/drbdmanage/drbdmanaged/pkg/deploypolicy"
	"github.com/drbdmanage/drbdmanaged/pkg/rc"
	"github.com/drbdmanage/drbdmanaged/pkg/reconciler"
	"github.com/drbdmanage/drbdmanaged/pkg/storage"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// Poke is a transaction whose only effect is to bump the cluster serial
// (and therefore the hash), forcing every peer watching the control
// volume to re-reconcile (spec §4.9).
func (s *Server) Poke(ctx context.Context) rc.List {
	return s.txn(ctx, "poke", true, func(result *rc.List) bool {
		return true
	})
}

// Resume clears an Assignment's reconcile failure count (spec §4.8).
// The reconciler retries a failed Assignment on every pass whatever its
// count; Resume resets the recorded count only.
func (s *Server) Resume(ctx context.Context, nodeName, resName string) rc.List {
	return s.txn(ctx, "resume", false, func(result *rc.List) bool {
		a, ok := s.cc.GetAssignment(nodeName, resName)
		if !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("assignment (%s,%s) not found", nodeName, resName))
			return false
		}
		reconciler.ClearFailureCount(a)
		return true
	})
}

// AutoDeploy rebalances resName's full-replica count to count+delta
// (spec §8 S6), demoting the excess to site clients via the configured
// deployer policy when siteClients is set.
func (s *Server) AutoDeploy(ctx context.Context, resName string, count, delta int, siteClients bool) rc.List {
	return s.txn(ctx, "auto_deploy", true, func(result *rc.List) bool {
		if _, ok := s.cc.Resources[resName]; !ok {
			result.Add(rc.ENOENT, fmt.Sprintf("resource %q not found", resName))
			return false
		}

		target := count + delta
		if target < 0 {
			target = 0
		}
		full := 0
		for _, a := range s.cc.AssignmentsForResource(resName) {
			if a.TState.Has(types.FlagDeploy) && !a.TState.Has(types.FlagDiskless) {
				full++
			}
		}
		if full <= target {
			return false
		}

		if err := deploypolicy.AutoDeploy(s.cc, resName, count, delta, siteClients, s.policy); err != nil {
			result.Add(rc.EINVAL, err.Error())
			return false
		}
		return true
	})
}

// Reconfigure rereads the server configuration file and rebuilds the
// storage backend and DRBD-admin instances from it, without dropping any
// in-memory domain state (spec §4.9). It does not go through the
// begin/commit transaction skeleton: nothing in the ClusterConfig image
// changes, so there is nothing to persist or reconcile.
func (s *Server) Reconfigure(ctx context.Context, configPath string, registry *storage.Registry) rc.List {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result rc.List
	cfg, err := config.Load(configPath)
	if err != nil {
		result.Add(rc.EPLUGIN, fmt.Sprintf("reconfigure: load %s: %v", configPath, err))
		return result
	}

	backend, err := registry.New(cfg.StoragePlugin, storage.Config{
		VolumeGroup: cfg.DrbdctrlVG,
		BinaryPath:  cfg.DrbdadmPath,
	})
	if err != nil {
		result.Add(rc.EPLUGIN, fmt.Sprintf("reconfigure: storage plugin %q: %v", cfg.StoragePlugin, err))
		return result
	}

	tool := admin.NewTool(cfg.DrbdadmPath, cfg.ExtendPath)
	writer := admin.NewWriter(cfg.DrbdConfPath)

	s.cfg = cfg
	s.backend = backend
	s.tool = tool
	s.writer = writer
	if s.reconciler != nil {
		s.reconciler.Reconfigure(backend, tool, writer)
	}
	result.FinalizeSuccess()
	return result
}
