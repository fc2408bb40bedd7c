package deploypolicy

import (
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

func buildAutoDeployFixture(nodeNames ...string) *types.ClusterConfig {
	cc := types.NewClusterConfig()
	r := types.NewResource("data", 7000, "s3cr3t")
	cc.AddResource(r)
	for i, name := range nodeNames {
		cc.AddNode(types.NewNode(name, "10.0.0."+string(rune('1'+i)), i))
	}
	return cc
}

func fullAssignment(nodeName string) *types.Assignment {
	a := types.NewAssignment(nodeName, "data", 0)
	a.SetTStateFlags(types.FlagDeploy)
	a.SetCStateFlags(types.FlagDeploy)
	return a
}

func TestAutoDeployDemotesExcessToSiteClients(t *testing.T) {
	cc := buildAutoDeployFixture("alpha", "bravo", "charlie", "delta", "echo")
	for _, name := range []string{"alpha", "bravo", "charlie", "delta"} {
		cc.AddAssignment(fullAssignment(name))
	}

	policy := NewBalanced(Config{})
	if err := AutoDeploy(cc, "data", 2, 0, true, policy); err != nil {
		t.Fatalf("AutoDeploy() error = %v", err)
	}

	var full, clients int
	for _, a := range cc.AssignmentsForResource("data") {
		switch {
		case a.TState.Has(types.FlagDiskless):
			clients++
			if !a.TState.Has(types.FlagDeploy) {
				t.Errorf("demoted assignment %s lost FlagDeploy", a.NodeName)
			}
		case a.TState.Has(types.FlagDeploy):
			full++
		}
	}

	if full != 2 {
		t.Errorf("full replicas = %d, want 2", full)
	}
	if clients != 2 {
		t.Errorf("site clients = %d, want 2", clients)
	}
}

func TestAutoDeployWithoutSiteClientsUnassigns(t *testing.T) {
	cc := buildAutoDeployFixture("alpha", "bravo", "charlie")
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		cc.AddAssignment(fullAssignment(name))
	}

	policy := NewBalanced(Config{})
	if err := AutoDeploy(cc, "data", 2, 0, false, policy); err != nil {
		t.Fatalf("AutoDeploy() error = %v", err)
	}

	var full, undeployed int
	for _, a := range cc.AssignmentsForResource("data") {
		if a.TState.Has(types.FlagDeploy) {
			full++
		} else {
			undeployed++
		}
	}
	if full != 2 {
		t.Errorf("full replicas = %d, want 2", full)
	}
	if undeployed != 1 {
		t.Errorf("undeployed = %d, want 1", undeployed)
	}
}

func TestAutoDeployNoExcessIsNoop(t *testing.T) {
	cc := buildAutoDeployFixture("alpha", "bravo")
	for _, name := range []string{"alpha", "bravo"} {
		cc.AddAssignment(fullAssignment(name))
	}

	policy := NewBalanced(Config{})
	if err := AutoDeploy(cc, "data", 5, 0, true, policy); err != nil {
		t.Fatalf("AutoDeploy() error = %v", err)
	}
	for _, a := range cc.AssignmentsForResource("data") {
		if !a.TState.Has(types.FlagDeploy) || a.TState.Has(types.FlagDiskless) {
			t.Errorf("assignment %s mutated unexpectedly", a.NodeName)
		}
	}
}

func TestAutoDeployUnknownResourceErrors(t *testing.T) {
	cc := types.NewClusterConfig()
	policy := NewBalanced(Config{})
	if err := AutoDeploy(cc, "missing", 1, 0, true, policy); err == nil {
		t.Error("AutoDeploy() on unknown resource: got nil error, want non-nil")
	}
}
