package admin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeFakeTool drops an executable shell script named name into dir that
// exits with code on invocation, standing in for drbdadm/drbdsetup so
// these tests never touch a real DRBD installation.
func writeFakeTool(t *testing.T, dir, name string, code int) {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("fake tool scripts require a POSIX shell")
	}
	script := "#!/bin/sh\nexit " + string(rune('0'+code)) + "\n"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestAdjustSurfacesExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFakeTool(t, dir, "drbdadm", 3)
	tool := NewTool(dir, "")

	code, err := tool.Adjust(context.Background(), "data")
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Adjust() exit code = %d, want 3", code)
	}
}

func TestAdjustSuccess(t *testing.T) {
	dir := t.TempDir()
	writeFakeTool(t, dir, "drbdadm", 0)
	tool := NewTool(dir, "")

	code, err := tool.Adjust(context.Background(), "data")
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if code != 0 {
		t.Errorf("Adjust() exit code = %d, want 0", code)
	}
}

func TestAdjustCtrlUsesFixedResourceName(t *testing.T) {
	dir := t.TempDir()
	writeFakeTool(t, dir, "drbdadm", 0)
	tool := NewTool(dir, "")

	if _, err := tool.AdjustCtrl(context.Background()); err != nil {
		t.Fatalf("AdjustCtrl() error = %v", err)
	}
}

func TestAdjustForceSuccess(t *testing.T) {
	dir := t.TempDir()
	writeFakeTool(t, dir, "drbdadm", 0)
	tool := NewTool(dir, "")

	code, err := tool.AdjustForce(context.Background(), "data")
	if err != nil {
		t.Fatalf("AdjustForce() error = %v", err)
	}
	if code != 0 {
		t.Errorf("AdjustForce() exit code = %d, want 0", code)
	}
}

func TestConnectDiscardSuccess(t *testing.T) {
	dir := t.TempDir()
	writeFakeTool(t, dir, "drbdadm", 0)
	tool := NewTool(dir, "")

	if _, err := tool.ConnectDiscard(context.Background(), "data", "bravo"); err != nil {
		t.Fatalf("ConnectDiscard() error = %v", err)
	}
}

func TestMissingToolReturnsError(t *testing.T) {
	tool := NewTool(t.TempDir(), "")
	if _, err := tool.Down(context.Background(), "data"); err == nil {
		t.Fatal("expected error when the drbdadm binary does not exist")
	}
}
