package reconciler

import (
	"context"
	"os"
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

func TestDeployAssignmentAllocatesAndAdjusts(t *testing.T) {
	cc := buildReconcileFixture()
	res := cc.Resources["data"]
	a := types.NewAssignment("alpha", "data", 0)
	a.SetTStateFlags(types.FlagDeploy)
	vs := types.NewVolumeState(0)
	vs.SetTStateFlags(types.FlagDeploy)
	a.AddVolumeState(vs)
	cc.AddAssignment(a)

	te := newTestEngine(t, "alpha", 0, cc)

	changed := te.engine.reconcileAssignment(context.Background(), res, a)
	if !changed {
		t.Fatal("reconcileAssignment() = false, want true")
	}
	if !a.CState.Has(types.FlagDeploy) {
		t.Error("cstate.DEPLOY not set after deploy")
	}
	if !te.backend.Exists("data", 0) {
		t.Error("expected backing device to be allocated")
	}
	if _, err := os.Stat(te.writer.ConfigPath("data")); err != nil {
		t.Errorf("expected .res file to be written: %v", err)
	}
}

func TestDeployAssignmentAdjustFailureIncrementsFailureCount(t *testing.T) {
	cc := buildReconcileFixture()
	res := cc.Resources["data"]
	a := types.NewAssignment("alpha", "data", 0)
	a.SetTStateFlags(types.FlagDeploy)
	vs := types.NewVolumeState(0)
	vs.SetTStateFlags(types.FlagDeploy)
	a.AddVolumeState(vs)
	cc.AddAssignment(a)

	te := newTestEngine(t, "alpha", 7, cc)

	changed := te.engine.reconcileAssignment(context.Background(), res, a)
	if changed {
		t.Fatal("reconcileAssignment() = true, want false on adjust failure")
	}
	if a.CState.Has(types.FlagDeploy) {
		t.Error("cstate.DEPLOY should not be set when adjust fails")
	}
	if failureCount(a) != 1 {
		t.Errorf("failureCount() = %d, want 1", failureCount(a))
	}
}

func TestUndeployAssignmentReleasesResources(t *testing.T) {
	cc := buildReconcileFixture()
	res := cc.Resources["data"]
	a := types.NewAssignment("alpha", "data", 0)
	a.SetCStateFlags(types.FlagDeploy)
	vs := types.NewVolumeState(0)
	vs.SetCStateFlags(types.FlagDeploy)
	a.AddVolumeState(vs)
	cc.AddAssignment(a)

	te := newTestEngine(t, "alpha", 0, cc)
	if err := te.writer.WriteResourceConfig(cc, "data"); err != nil {
		t.Fatalf("WriteResourceConfig() error = %v", err)
	}
	if _, err := te.backend.CreateBlockdevice(context.Background(), "data", 0, 1048576); err != nil {
		t.Fatalf("CreateBlockdevice() error = %v", err)
	}

	changed := te.engine.reconcileAssignment(context.Background(), res, a)
	if !changed {
		t.Fatal("reconcileAssignment() = false, want true")
	}
	if a.CState.Has(types.FlagDeploy) {
		t.Error("cstate.DEPLOY should be cleared after undeploy")
	}
	if te.backend.Exists("data", 0) {
		t.Error("expected backing device to be released")
	}
	if _, err := os.Stat(te.writer.ConfigPath("data")); !os.IsNotExist(err) {
		t.Error("expected .res file to be removed")
	}
}

func TestReconcileDeployedAttachesAndConnects(t *testing.T) {
	cc := buildReconcileFixture()
	res := cc.Resources["data"]

	a := types.NewAssignment("alpha", "data", 0)
	a.SetCStateFlags(types.FlagDeploy)
	a.SetTStateFlags(types.FlagDeploy | types.FlagAttach | types.FlagConnect)
	vs := types.NewVolumeState(0)
	vs.SetCStateFlags(types.FlagDeploy)
	vs.SetTStateFlags(types.FlagDeploy | types.FlagAttach)
	a.AddVolumeState(vs)
	cc.AddAssignment(a)

	peer := types.NewAssignment("bravo", "data", 1)
	peer.SetCStateFlags(types.FlagDeploy)
	peer.SetTStateFlags(types.FlagDeploy)
	cc.AddAssignment(peer)

	te := newTestEngine(t, "alpha", 0, cc)

	changed := te.engine.reconcileAssignment(context.Background(), res, a)
	if !changed {
		t.Fatal("reconcileAssignment() = false, want true")
	}
	if !vs.CState.Has(types.FlagAttach) {
		t.Error("expected volume state cstate.ATTACH to be set")
	}
	if !a.CState.Has(types.FlagConnect) {
		t.Error("expected assignment cstate.CONNECT to be set")
	}
}

func TestAdjustUsesForceWhenOverwriteSet(t *testing.T) {
	cc := buildReconcileFixture()
	a := types.NewAssignment("alpha", "data", 0)
	a.SetTStateFlags(types.FlagOverwrite)

	te := newTestEngine(t, "alpha", 0, cc)
	if _, err := te.engine.adjust(context.Background(), "data", a); err != nil {
		t.Fatalf("adjust() error = %v", err)
	}
}
