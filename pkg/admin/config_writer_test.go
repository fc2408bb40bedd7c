package admin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

func buildWriterFixture() *types.ClusterConfig {
	cc := types.NewClusterConfig()
	alpha := types.NewNode("alpha", "10.0.0.1", 0)
	bravo := types.NewNode("bravo", "10.0.0.2", 1)
	cc.AddNode(alpha)
	cc.AddNode(bravo)

	res := types.NewResource("data", 7000, "s3cr3t")
	vol := types.NewVolume(0, 1048576, 100)
	res.AddVolume(vol)
	cc.AddResource(res)

	a1 := types.NewAssignment("alpha", "data", 0)
	vs1 := types.NewVolumeState(0)
	vs1.BlockDevice = "/dev/drbdpool/data_00"
	a1.AddVolumeState(vs1)
	cc.AddAssignment(a1)

	a2 := types.NewAssignment("bravo", "data", 1)
	vs2 := types.NewVolumeState(0)
	a2.AddVolumeState(vs2)
	cc.AddAssignment(a2)

	return cc
}

func TestWriteResourceConfigDeterministicPath(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	cc := buildWriterFixture()

	if err := w.WriteResourceConfig(cc, "data"); err != nil {
		t.Fatalf("WriteResourceConfig() error = %v", err)
	}

	wantPath := filepath.Join(dir, "drbdmanage_data.res")
	if w.ConfigPath("data") != wantPath {
		t.Fatalf("ConfigPath() = %s, want %s", w.ConfigPath("data"), wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	body := string(data)
	for _, want := range []string{"resource data {", "on alpha {", "on bravo {", "/dev/drbdpool/data_00", "disk none"} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered config missing %q:\n%s", want, body)
		}
	}
}

func TestWriteResourceConfigUnknownResource(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.WriteResourceConfig(types.NewClusterConfig(), "missing"); err == nil {
		t.Fatal("expected error for unknown resource")
	}
}

func TestRemoveResourceConfigMissingIsNotError(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.RemoveResourceConfig("never-written"); err != nil {
		t.Errorf("RemoveResourceConfig() on missing file should succeed, got %v", err)
	}
}

func TestWriteControlConfigRendersEveryNode(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	cc := buildWriterFixture()

	if err := w.WriteControlConfig(cc.NodesOrdered(), 6999, 0, "/dev/drbdpool/.drbdctrl_00", "ctrlsecret"); err != nil {
		t.Fatalf("WriteControlConfig() error = %v", err)
	}

	data, err := os.ReadFile(w.ConfigPath(DrbdctrlResName()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	body := string(data)
	for _, want := range []string{"resource .drbdctrl {", "on alpha {", "on bravo {", "/dev/drbdpool/.drbdctrl_00"} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered control config missing %q:\n%s", want, body)
		}
	}
}

func TestRemoveResourceConfigDeletesFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	if err := w.WriteResourceConfig(buildWriterFixture(), "data"); err != nil {
		t.Fatalf("WriteResourceConfig() error = %v", err)
	}
	if err := w.RemoveResourceConfig("data"); err != nil {
		t.Fatalf("RemoveResourceConfig() error = %v", err)
	}
	if _, err := os.Stat(w.ConfigPath("data")); !os.IsNotExist(err) {
		t.Error("expected .res file to be removed")
	}
}
