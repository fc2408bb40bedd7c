package types

import (
	"bytes"
	"encoding/json"
	"testing"
)

func buildSampleCluster() *ClusterConfig {
	cc := NewClusterConfig()
	n1 := NewNode("alpha", "10.0.0.1", 0)
	n1.Props.Set("aux/rack", "1")
	n2 := NewNode("bravo", "10.0.0.2", 1)
	cc.AddNode(n1)
	cc.AddNode(n2)

	r := NewResource("data", 7000, "s3cr3t")
	v0 := NewVolume(0, 1048576, 100)
	v1 := NewVolume(1, 2097152, 101)
	r.AddVolume(v0)
	r.AddVolume(v1)
	cc.AddResource(r)

	a1 := NewAssignment("alpha", "data", 0)
	a1.SetCStateFlags(FlagDeploy | FlagAttach | FlagConnect)
	a1.AddVolumeState(NewVolumeState(0))
	a1.AddVolumeState(NewVolumeState(1))
	cc.AddAssignment(a1)

	a2 := NewAssignment("bravo", "data", 1)
	a2.SetTStateFlags(FlagDeploy)
	cc.AddAssignment(a2)

	snap := NewSnapshot("data", "snap1")
	sa := NewSnapshotAssignment("alpha")
	sa.AddVolumeState(NewSnapshotVolumeState(0))
	snap.AddAssignment(sa)
	r.AddSnapshot(snap)

	cc.Serial = 42
	return cc
}

func TestClusterConfigJSONRoundTrip(t *testing.T) {
	cc := buildSampleCluster()
	data, err := json.Marshal(cc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := NewClusterConfig()
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Serial != cc.Serial {
		t.Errorf("Serial = %d, want %d", got.Serial, cc.Serial)
	}
	if len(got.Nodes) != 2 || len(got.Resources) != 1 || len(got.Assignments) != 2 {
		t.Fatalf("round trip lost entities: %+v", got)
	}
	if _, ok := got.Nodes["alpha"].Props.Get("aux/rack"); !ok {
		t.Error("node property lost across round trip")
	}
	res := got.Resources["data"]
	if len(res.VolumesOrdered()) != 2 {
		t.Fatalf("volumes lost across round trip: %v", res.VolumesOrdered())
	}
	if len(res.SnapshotsOrdered()) != 1 {
		t.Fatalf("snapshots lost across round trip")
	}
	a, ok := got.GetAssignment("alpha", "data")
	if !ok {
		t.Fatal("assignment (alpha, data) missing after round trip")
	}
	if !a.CState.Has(FlagDeploy | FlagAttach | FlagConnect) {
		t.Errorf("assignment cstate lost: %v", a.CState)
	}
	if len(a.VolumeStatesOrdered()) != 2 {
		t.Fatalf("assignment vol states lost")
	}
	if got.Nodes["alpha"].Assignments[0] != "data" {
		t.Errorf("node->assignment threading lost after round trip")
	}
	if got.Resources["data"].Assignments[0] != "alpha" {
		t.Errorf("resource->assignment threading lost after round trip")
	}
}

func TestClusterConfigMarshalDeterministic(t *testing.T) {
	cc := buildSampleCluster()
	a, err := json.Marshal(cc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	b, err := json.Marshal(cc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("two marshals of the same ClusterConfig produced different byte images")
	}
}

func TestClusterConfigMarshalIndependentOfAssignmentInsertionOrder(t *testing.T) {
	cc1 := NewClusterConfig()
	cc1.AddNode(NewNode("alpha", "10.0.0.1", 0))
	cc1.AddNode(NewNode("bravo", "10.0.0.2", 1))
	cc1.AddResource(NewResource("data", 7000, "s3cr3t"))
	cc1.AddAssignment(NewAssignment("alpha", "data", 0))
	cc1.AddAssignment(NewAssignment("bravo", "data", 1))

	cc2 := NewClusterConfig()
	cc2.AddNode(NewNode("alpha", "10.0.0.1", 0))
	cc2.AddNode(NewNode("bravo", "10.0.0.2", 1))
	cc2.AddResource(NewResource("data", 7000, "s3cr3t"))
	cc2.AddAssignment(NewAssignment("bravo", "data", 1))
	cc2.AddAssignment(NewAssignment("alpha", "data", 0))

	d1, err := json.Marshal(cc1)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	d2, err := json.Marshal(cc2)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Fatal("assignment insertion order changed the serialized image")
	}
}
