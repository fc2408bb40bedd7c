package deploypolicy

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// Policy selects which full-replica Assignments of a Resource should be
// demoted when auto_deploy is asked to shrink the replica count.
type Policy interface {
	SelectForDemotion(candidates []*types.Assignment, targetCount int) []*types.Assignment
}

// Config is the optional policy document (spec §6 deployer-plugin).
type Config struct {
	// Weight overrides the demotion priority for a node by name; lower
	// weight is demoted first. Nodes absent from the map default to 0.
	Weight map[string]int `yaml:"weight"`

	// SiteClientThreshold is read from the policy document, but neither
	// Balanced nor AutoDeploy consults it: no cap on the number of
	// site-client (diskless) assignments is applied.
	SiteClientThreshold int `yaml:"site_client_threshold"`
}

// LoadConfig reads a YAML policy document from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Balanced is the default deployer policy (spec §6's "Balanced"):
// demote the lowest-weighted full replicas first, deterministic on
// ties by preserving the candidate slice's original order.
type Balanced struct {
	cfg Config
}

// NewBalanced returns a Balanced policy using cfg (zero value is a
// uniform-weight policy).
func NewBalanced(cfg Config) *Balanced {
	return &Balanced{cfg: cfg}
}

func (p *Balanced) weight(nodeName string) int {
	if p.cfg.Weight == nil {
		return 0
	}
	return p.cfg.Weight[nodeName]
}

// SelectForDemotion returns the len(candidates)-targetCount lowest-
// weighted Assignments, the ones auto_deploy should demote. Ties are
// broken by candidates' original order (first-encountered wins), the
// same determinism the teacher's scheduler.selectNode relies on.
func (p *Balanced) SelectForDemotion(candidates []*types.Assignment, targetCount int) []*types.Assignment {
	if targetCount < 0 {
		targetCount = 0
	}
	excess := len(candidates) - targetCount
	if excess <= 0 {
		return nil
	}

	remaining := append([]*types.Assignment(nil), candidates...)
	var demoted []*types.Assignment
	for i := 0; i < excess; i++ {
		idx := 0
		lowest := p.weight(remaining[0].NodeName)
		for j := 1; j < len(remaining); j++ {
			w := p.weight(remaining[j].NodeName)
			if w < lowest {
				lowest = w
				idx = j
			}
		}
		demoted = append(demoted, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return demoted
}
