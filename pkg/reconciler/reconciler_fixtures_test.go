package reconciler

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/admin"
	"github.com/drbdmanage/drbdmanaged/pkg/notify"
	"github.com/drbdmanage/drbdmanaged/pkg/persistence"
	"github.com/drbdmanage/drbdmanaged/pkg/storage"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// writeFakeDrbdadm drops an executable shell script standing in for
// drbdadm that always exits with code, mirroring pkg/admin's
// writeFakeTool fixture.
func writeFakeDrbdadm(t *testing.T, dir string, code int) {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("fake tool scripts require a POSIX shell")
	}
	script := "#!/bin/sh\nexit " + string(rune('0'+code)) + "\n"
	path := filepath.Join(dir, "drbdadm")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

// fakeGateway is an in-memory persistence.Gateway used by reconciler
// tests, grounded on the in-memory fakes pkg/storage.FakeBackend already
// established for this package's tests.
type fakeGateway struct {
	hash      []byte
	saveCount int
	lastSaved *types.ClusterConfig
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) Open(ctx context.Context, writable bool) (persistence.Session, error) {
	return &fakeSession{gw: g, writable: writable}, nil
}

type fakeSession struct {
	gw       *fakeGateway
	writable bool
}

func (s *fakeSession) StoredHash() []byte { return s.gw.hash }

func (s *fakeSession) Load(into *types.ClusterConfig) error {
	if s.gw.lastSaved != nil {
		*into = *s.gw.lastSaved
	}
	return nil
}

func (s *fakeSession) Save(from *types.ClusterConfig) ([]byte, error) {
	data, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	s.gw.hash = sum[:]
	s.gw.saveCount++
	s.gw.lastSaved = from
	return s.gw.hash, nil
}

func (s *fakeSession) Close() error { return nil }

// testEngine bundles an Engine with the fakes backing it, so tests can
// assert on what the engine did without touching a real DRBD install.
type testEngine struct {
	engine  *Engine
	backend *storage.FakeBackend
	gateway *fakeGateway
	writer  *admin.Writer
	confDir string
}

func newTestEngine(t *testing.T, localNode string, exitCode int, cc *types.ClusterConfig) *testEngine {
	t.Helper()
	toolDir := t.TempDir()
	writeFakeDrbdadm(t, toolDir, exitCode)

	confDir := t.TempDir()
	backend := storage.NewFakeBackend()
	gw := newFakeGateway()
	broker := notify.NewBroker()
	tool := admin.NewTool(toolDir, "")
	writer := admin.NewWriter(confDir)

	control := ControlVolume{
		Port:       6999,
		MinorNr:    0,
		DevicePath: "/dev/drbdpool/.drbdctrl_00",
		Secret:     "ctrlsecret",
	}

	return &testEngine{
		engine:  NewEngine(gw, backend, tool, writer, broker, control, localNode, cc),
		backend: backend,
		gateway: gw,
		writer:  writer,
		confDir: confDir,
	}
}

// buildReconcileFixture returns a ClusterConfig with two nodes and one
// single-volume Resource, with no Assignments yet.
func buildReconcileFixture() *types.ClusterConfig {
	cc := types.NewClusterConfig()
	alpha := types.NewNode("alpha", "10.0.0.1", 0)
	bravo := types.NewNode("bravo", "10.0.0.2", 1)
	cc.AddNode(alpha)
	cc.AddNode(bravo)

	res := types.NewResource("data", 7000, "s3cr3t")
	res.AddVolume(types.NewVolume(0, 1048576, 100))
	cc.AddResource(res)

	return cc
}
