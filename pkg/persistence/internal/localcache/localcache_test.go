package localcache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

func TestLoadOnEmptyCacheReportsNotOk(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "warm.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	ok, err := c.Load(types.NewClusterConfig())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() on an empty cache should report ok=false")
	}
}

func TestStoreThenLoadRoundTrips(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "warm.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	cc := types.NewClusterConfig()
	cc.AddNode(types.NewNode("ctrl1", "10.0.0.9", 0))
	cc.Serial = 3
	hash := []byte("deadbeef")

	if err := c.Store(cc, hash); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := c.StoredHash()
	if err != nil {
		t.Fatalf("StoredHash() error = %v", err)
	}
	if !bytes.Equal(got, hash) {
		t.Errorf("StoredHash() = %q, want %q", got, hash)
	}

	loaded := types.NewClusterConfig()
	ok, err := c.Load(loaded)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() reported ok=false after a Store")
	}
	if loaded.Serial != 3 {
		t.Errorf("Serial = %d, want 3", loaded.Serial)
	}
	if _, exists := loaded.Nodes["ctrl1"]; !exists {
		t.Error("loaded cache missing node 'ctrl1'")
	}
}
