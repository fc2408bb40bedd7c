package metrics

import (
	"sync"
	"time"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// Collector periodically samples the in-memory ClusterConfig and
// publishes gauge metrics from it. It never mutates the config it reads.
type Collector struct {
	mu     sync.RWMutex
	cc     *types.ClusterConfig
	stopCh chan struct{}
}

// NewCollector returns a Collector with no ClusterConfig attached yet;
// call SetClusterConfig once the daemon has loaded one.
func NewCollector() *Collector {
	return &Collector{stopCh: make(chan struct{})}
}

// SetClusterConfig sets the ClusterConfig the next collection cycle will
// read. The daemon calls it once at startup with its single live
// ClusterConfig (spec §9); reloads from the control volume fill that same
// instance in place, so no further call is needed.
func (c *Collector) SetClusterConfig(cc *types.ClusterConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cc = cc
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.mu.RLock()
	cc := c.cc
	c.mu.RUnlock()
	if cc == nil {
		return
	}

	NodesTotal.Set(float64(len(cc.Nodes)))
	ResourcesTotal.Set(float64(len(cc.Resources)))

	counts := map[string]int{"deployed": 0, "diskless": 0, "pending": 0, "dead": 0}
	for _, a := range cc.Assignments {
		switch {
		case a.Dead():
			counts["dead"]++
		case a.CState.Has(types.FlagDeploy) && a.CState.Has(types.FlagDiskless):
			counts["diskless"]++
		case a.CState.Has(types.FlagDeploy):
			counts["deployed"]++
		default:
			counts["pending"]++
		}
	}
	for state, n := range counts {
		AssignmentsTotal.WithLabelValues(state).Set(float64(n))
	}

	for _, n := range cc.Nodes {
		if n.PoolSizeKiB >= 0 {
			StoragePoolSizeKiB.WithLabelValues(n.Name).Set(float64(n.PoolSizeKiB))
		}
		if n.PoolFreeKiB >= 0 {
			StoragePoolFreeKiB.WithLabelValues(n.Name).Set(float64(n.PoolFreeKiB))
		}
	}
}
