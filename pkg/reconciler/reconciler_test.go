package reconciler

import (
	"context"
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

func TestRunPersistsAndSetsLastHash(t *testing.T) {
	cc := buildReconcileFixture()
	te := newTestEngine(t, "alpha", 0, cc)

	if err := te.engine.Run(context.Background(), false, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if te.gateway.saveCount != 1 {
		t.Fatalf("saveCount = %d, want 1", te.gateway.saveCount)
	}
	if te.engine.lastHash == nil {
		t.Error("expected lastHash to be set after a successful run")
	}
}

func TestRunSkipsSecondPassWhenNothingChanged(t *testing.T) {
	cc := buildReconcileFixture()
	te := newTestEngine(t, "alpha", 0, cc)

	if err := te.engine.Run(context.Background(), false, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	firstSaves := te.gateway.saveCount

	if err := te.engine.Run(context.Background(), false, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if te.gateway.saveCount != firstSaves {
		t.Errorf("saveCount changed from %d to %d on a no-op pass", firstSaves, te.gateway.saveCount)
	}
}

func TestRunOverrideHashForcesAPass(t *testing.T) {
	cc := buildReconcileFixture()
	te := newTestEngine(t, "alpha", 0, cc)

	if err := te.engine.Run(context.Background(), false, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	firstSaves := te.gateway.saveCount

	if err := te.engine.Run(context.Background(), true, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if te.gateway.saveCount != firstSaves+1 {
		t.Errorf("saveCount = %d, want %d after an override pass", te.gateway.saveCount, firstSaves+1)
	}
}

func TestRunBumpSerialIncrementsSerial(t *testing.T) {
	cc := buildReconcileFixture()
	te := newTestEngine(t, "alpha", 0, cc)

	before := cc.Serial
	if err := te.engine.Run(context.Background(), false, true); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cc.Serial != before+1 {
		t.Errorf("Serial = %d, want %d", cc.Serial, before+1)
	}
}

func TestRunDeploysLocalAssignmentsOnly(t *testing.T) {
	cc := buildReconcileFixture()
	local := types.NewAssignment("alpha", "data", 0)
	local.SetTStateFlags(types.FlagDeploy)
	vs := types.NewVolumeState(0)
	vs.SetTStateFlags(types.FlagDeploy)
	local.AddVolumeState(vs)
	cc.AddAssignment(local)

	remote := types.NewAssignment("bravo", "data", 1)
	remote.SetTStateFlags(types.FlagDeploy)
	cc.AddAssignment(remote)

	te := newTestEngine(t, "alpha", 0, cc)
	if err := te.engine.Run(context.Background(), false, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !local.CState.Has(types.FlagDeploy) {
		t.Error("expected local assignment to be deployed")
	}
	if remote.CState.Has(types.FlagDeploy) {
		t.Error("remote assignment must not be touched by this node's engine")
	}
}

func TestInitialUpBringsUpDeployedAssignments(t *testing.T) {
	cc := buildReconcileFixture()
	a := types.NewAssignment("alpha", "data", 0)
	a.SetTStateFlags(types.FlagDeploy)
	vs := types.NewVolumeState(0)
	vs.SetTStateFlags(types.FlagDeploy)
	a.AddVolumeState(vs)
	cc.AddAssignment(a)

	te := newTestEngine(t, "alpha", 0, cc)
	if err := te.engine.InitialUp(context.Background()); err != nil {
		t.Fatalf("InitialUp() error = %v", err)
	}
	if !a.CState.Has(types.FlagDeploy) {
		t.Error("expected InitialUp to deploy the assignment")
	}
}
