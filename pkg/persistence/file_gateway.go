package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/drbdmanage/drbdmanaged/pkg/persistence/internal/localcache"
	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// FileGateway is a Gateway backed by a single flat file, advisory-locked
// with flock(2). In production the file is a path on the DRBD-replicated
// control volume (spec §4.4): at most one node holds the exclusive lock
// at a time, which is what makes the hash-recheck-after-lock protocol
// race-free across nodes.
type FileGateway struct {
	path string

	// mu serializes concurrent Opens from within this process; flock
	// only arbitrates across processes/nodes and would otherwise let two
	// goroutines in this daemon both believe they hold the writer lock.
	mu sync.Mutex

	// cache mirrors every successful Save to a local bbolt file so
	// initial_up (spec §4.8) has something to reconstruct from before
	// the control volume's own backing device is reachable. Nil when no
	// warm-start mirror was configured.
	cache *localcache.Cache
}

// NewFileGateway returns a Gateway over the file at path. The file need
// not exist yet; the first writable Open creates it.
func NewFileGateway(path string) *FileGateway {
	return &FileGateway{path: path}
}

// NewFileGatewayWithCache is NewFileGateway plus a warm-start mirror at
// cachePath (spec §4.8's chicken-and-egg gap: the control volume can't
// be read until the control resource is up, but bringing it up needs
// last-known-good node/resource state). The cache file is independent of
// the control volume and survives a node reboot on its own local disk.
func NewFileGatewayWithCache(path, cachePath string) (*FileGateway, error) {
	cache, err := localcache.Open(cachePath)
	if err != nil {
		return nil, err
	}
	return &FileGateway{path: path, cache: cache}, nil
}

// WarmStart loads the last image this node successfully saved, from the
// local cache rather than the control volume itself. It reports
// ok=false if no warm-start mirror is configured or nothing has been
// cached yet.
func (g *FileGateway) WarmStart(into *types.ClusterConfig) (ok bool, err error) {
	if g.cache == nil {
		return false, nil
	}
	return g.cache.Load(into)
}

// CloseCache releases the warm-start mirror's backing file, if any.
func (g *FileGateway) CloseCache() error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Close()
}

// Open implements Gateway.
func (g *FileGateway) Open(ctx context.Context, writable bool) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("open", err)
	}

	g.mu.Lock()
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(g.path, flag, 0644)
	if err != nil {
		g.mu.Unlock()
		return nil, wrap("open", err)
	}

	lockType := syscall.LOCK_SH
	if writable {
		lockType = syscall.LOCK_EX
	}
	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		f.Close()
		g.mu.Unlock()
		return nil, wrap("open", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		g.mu.Unlock()
		return nil, wrap("open", err)
	}

	var hash []byte
	if len(data) > 0 {
		sum := sha256.Sum256(data)
		hash = sum[:]
	}

	return &fileSession{gw: g, f: f, writable: writable, hash: hash}, nil
}

// fileSession implements Session over an already-locked *os.File.
type fileSession struct {
	gw       *FileGateway
	f        *os.File
	writable bool
	hash     []byte
	closed   bool
}

// StoredHash implements Session.
func (s *fileSession) StoredHash() []byte {
	return s.hash
}

// Load implements Session.
func (s *fileSession) Load(into *types.ClusterConfig) error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return wrap("load", err)
	}
	data, err := io.ReadAll(s.f)
	if err != nil {
		return wrap("load", err)
	}
	fresh := types.NewClusterConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, fresh); err != nil {
			return wrap("load", err)
		}
	}
	*into = *fresh
	return nil
}

// Save implements Session. It truncates and rewrites the file in place
// so the already-held flock (tied to the open file description, not the
// path) stays valid across the write.
func (s *fileSession) Save(from *types.ClusterConfig) ([]byte, error) {
	if !s.writable {
		return nil, wrap("save", errors.New("session not opened writable"))
	}
	data, err := json.Marshal(from)
	if err != nil {
		return nil, wrap("save", err)
	}
	if err := s.f.Truncate(0); err != nil {
		return nil, wrap("save", err)
	}
	if _, err := s.f.WriteAt(data, 0); err != nil {
		return nil, wrap("save", err)
	}
	if err := s.f.Sync(); err != nil {
		return nil, wrap("save", err)
	}
	sum := sha256.Sum256(data)
	s.hash = sum[:]

	if s.gw.cache != nil {
		if err := s.gw.cache.Store(from, s.hash); err != nil {
			return s.hash, wrap("save", err)
		}
	}

	return s.hash, nil
}

// Close implements Session.
func (s *fileSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	unlockErr := syscall.Flock(int(s.f.Fd()), syscall.LOCK_UN)
	closeErr := s.f.Close()
	s.gw.mu.Unlock()
	if unlockErr != nil {
		return wrap("close", unlockErr)
	}
	if closeErr != nil {
		return wrap("close", closeErr)
	}
	return nil
}
