package storage

import (
	"context"
	"testing"
)

func TestRegistryUnknownPlugin(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New("bogus", Config{VolumeGroup: "drbdpool"}); err == nil {
		t.Fatal("expected error for unknown plugin name")
	}
}

func TestRegistryKnownPlugins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"LVM", "LVMThin", "ZFS"} {
		if _, err := r.New(name, Config{VolumeGroup: "drbdpool"}); err != nil {
			t.Errorf("New(%s) error = %v", name, err)
		}
	}
}

func TestFakeBackendIdempotentCreate(t *testing.T) {
	b := NewFakeBackend()
	ctx := context.Background()

	p1, err := b.CreateBlockdevice(ctx, "r0", 0, 65536)
	if err != nil {
		t.Fatalf("CreateBlockdevice() error = %v", err)
	}
	p2, err := b.CreateBlockdevice(ctx, "r0", 0, 65536)
	if err != nil {
		t.Fatalf("CreateBlockdevice() second call error = %v", err)
	}
	if p1 != p2 {
		t.Errorf("CreateBlockdevice not idempotent: %q != %q", p1, p2)
	}
}

func TestFakeBackendRemoveMissingSucceeds(t *testing.T) {
	b := NewFakeBackend()
	if err := b.RemoveBlockdevice(context.Background(), "r0", 99); err != nil {
		t.Errorf("RemoveBlockdevice on missing device should succeed, got %v", err)
	}
}
