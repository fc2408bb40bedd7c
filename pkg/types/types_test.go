package types

import "testing"

func TestAssignmentDeadLifecycle(t *testing.T) {
	a := NewAssignment("alpha", "r0", 0)
	if !a.Dead() {
		t.Fatal("freshly created Assignment with no flags set should be Dead")
	}

	a.SetTStateFlags(FlagDeploy | FlagConnect)
	if a.Dead() {
		t.Fatal("Assignment with tstate.DEPLOY=1 must not be Dead")
	}

	a.SetCStateFlags(FlagDeploy)
	a.ClearTStateFlags(FlagDeploy)
	if a.Dead() {
		t.Fatal("Assignment with cstate.DEPLOY=1 must not be Dead even if tstate.DEPLOY=0")
	}

	a.ClearCStateFlags(FlagDeploy)
	if !a.Dead() {
		t.Fatal("Assignment with both DEPLOY flags clear must be Dead")
	}
}

func TestVolumeStateDead(t *testing.T) {
	vs := NewVolumeState(0)
	if !vs.Dead() {
		t.Fatal("fresh VolumeState should be Dead")
	}
	vs.SetCStateFlags(FlagDeploy)
	if vs.Dead() {
		t.Fatal("VolumeState with cstate.DEPLOY=1 must not be Dead")
	}
}

func TestResourceVolumeOrderingPreserved(t *testing.T) {
	r := NewResource("r0", 7000, "secret")
	r.AddVolume(NewVolume(2, 65536, 100))
	r.AddVolume(NewVolume(0, 65536, 101))
	r.AddVolume(NewVolume(1, 65536, 102))

	got := r.VolumesOrdered()
	want := []int{2, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("VolumesOrdered() len = %d, want %d", len(got), len(want))
	}
	for i, v := range want {
		if got[i].VolID != v {
			t.Errorf("VolumesOrdered()[%d].VolID = %d, want %d", i, got[i].VolID, v)
		}
	}

	r.RemoveVolume(0)
	if _, exists := r.Volumes[0]; exists {
		t.Error("RemoveVolume did not delete from Volumes map")
	}
	got = r.VolumesOrdered()
	if len(got) != 2 || got[0].VolID != 2 || got[1].VolID != 1 {
		t.Errorf("VolumesOrdered() after removal = %v", got)
	}
}

func TestClusterConfigAssignmentThreading(t *testing.T) {
	cc := NewClusterConfig()
	cc.AddNode(NewNode("alpha", "10.0.0.1", 0))
	cc.AddResource(NewResource("r0", 7000, "secret"))

	a := NewAssignment("alpha", "r0", 0)
	cc.AddAssignment(a)

	got, ok := cc.GetAssignment("alpha", "r0")
	if !ok || got != a {
		t.Fatal("GetAssignment did not return the stored Assignment")
	}

	byNode := cc.AssignmentsForNode("alpha")
	if len(byNode) != 1 || byNode[0] != a {
		t.Errorf("AssignmentsForNode(alpha) = %v, want [a]", byNode)
	}
	byRes := cc.AssignmentsForResource("r0")
	if len(byRes) != 1 || byRes[0] != a {
		t.Errorf("AssignmentsForResource(r0) = %v, want [a]", byRes)
	}

	cc.RemoveAssignment(a.Key())
	if _, ok := cc.GetAssignment("alpha", "r0"); ok {
		t.Error("Assignment still resolvable after RemoveAssignment")
	}
	if len(cc.AssignmentsForNode("alpha")) != 0 {
		t.Error("Node still references removed Assignment")
	}
	if len(cc.AssignmentsForResource("r0")) != 0 {
		t.Error("Resource still references removed Assignment")
	}
}

// The model layer stores whatever bits a caller sets; mutual exclusion
// between OVERWRITE/DISKLESS/DISCARD is enforced by the C9 façade, not
// here, so setting both concurrently must succeed at this layer.
func TestFlagsLayerDoesNotEnforceMutualExclusion(t *testing.T) {
	a := NewAssignment("alpha", "r0", 0)
	a.SetTStateFlags(FlagOverwrite | FlagDiskless)

	if !a.TState.Has(FlagOverwrite) || !a.TState.Has(FlagDiskless) {
		t.Fatal("Flags type unexpectedly rejected concurrent bits")
	}
}
