package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/drbdmanage/drbdmanaged/pkg/admin"
	"github.com/drbdmanage/drbdmanaged/pkg/config"
	"github.com/drbdmanage/drbdmanaged/pkg/deploypolicy"
	"github.com/drbdmanage/drbdmanaged/pkg/notify"
	"github.com/drbdmanage/drbdmanaged/pkg/persistence"
	"github.com/drbdmanage/drbdmanaged/pkg/reconciler"
	"github.com/drbdmanage/drbdmanaged/pkg/storage"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// fakeGateway/fakeSession are a minimal in-memory persistence.Gateway,
// grounded on pkg/reconciler's own test fixtures of the same shape.
type fakeGateway struct {
	hash      []byte
	saveCount int
	lastSaved *types.ClusterConfig
	openErr   error
}

func newFakeGateway() *fakeGateway { return &fakeGateway{} }

func (g *fakeGateway) Open(ctx context.Context, writable bool) (persistence.Session, error) {
	if g.openErr != nil {
		return nil, g.openErr
	}
	return &fakeSession{gw: g}, nil
}

type fakeSession struct{ gw *fakeGateway }

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

// testServer bundles a Server with the fakes/fixtures backing it.
type testServer struct {
	srv     *Server
	gateway *fakeGateway
	backend *storage.FakeBackend
	cc      *types.ClusterConfig
}

func newTestServer(t *testing.T, cc *types.ClusterConfig) *testServer {
	t.Helper()
	toolDir := t.TempDir()
	writeFakeDrbdadm(t, toolDir, 0)
	confDir := t.TempDir()

	backend := storage.NewFakeBackend()
	gw := newFakeGateway()
	broker := notify.NewBroker()
	tool := admin.NewTool(toolDir, "")
	writer := admin.NewWriter(confDir)
	policy := deploypolicy.NewBalanced(deploypolicy.Config{})
	cfg := config.Default()

	control := reconciler.ControlVolume{
		Port:       6999,
		MinorNr:    0,
		DevicePath: "/dev/drbdpool/.drbdctrl_00",
		Secret:     "ctrlsecret",
	}

	engine := reconciler.NewEngine(gw, backend, tool, writer, broker, control, "alpha", cc)

	srv := New(gw, backend, tool, writer, broker, engine, policy, cfg, control, "alpha", cc)
	return &testServer{srv: srv, gateway: gw, backend: backend, cc: cc}
}

// buildServerFixture returns a ClusterConfig with two nodes and one
// single-volume Resource, with no Assignments yet.
func buildServerFixture() *types.ClusterConfig {
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
