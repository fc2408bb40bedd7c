package storage

import (
	"context"
	"fmt"
)

// Backend is the storage-plugin interface of spec §4.5. Implementations
// must be idempotent: CreateBlockdevice on an already-existing backing
// device returns its current path; RemoveBlockdevice on a missing one
// succeeds.
type Backend interface {
	// CreateBlockdevice allocates (or finds) the backing device for
	// (resource, volID) sized sizeKiB and returns its path.
	CreateBlockdevice(ctx context.Context, resource string, volID int, sizeKiB int64) (path string, err error)

	// RemoveBlockdevice releases the backing device for (resource, volID).
	RemoveBlockdevice(ctx context.Context, resource string, volID int) error

	// ExtendBlockdevice grows the backing device for (resource, volID)
	// to newSizeKiB. Implementations reject a newSizeKiB smaller than
	// the current size.
	ExtendBlockdevice(ctx context.Context, resource string, volID int, newSizeKiB int64) error

	// UpdatePool reports the total and free capacity, in KiB, of the
	// pool backing this node's volumes.
	UpdatePool(ctx context.Context) (sizeKiB, freeKiB int64, err error)
}

// Config carries the subset of pkg/config.Config a Backend needs to
// initialize itself (volume group name, binary search path, ...).
type Config struct {
	VolumeGroup string
	BinaryPath  string // directory prepended to PATH when invoking the tool
}

// Factory constructs a Backend from Config.
type Factory func(cfg Config) (Backend, error)

// Registry maps a storage-plugin name (spec §6 storage-plugin key) to
// its Factory, following the same "registry mapping a string identifier
// to a factory" pattern used by the deployer plugin (spec §9 design
// notes).
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with the lvm, thin, and
// zfs backends.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("LVM", NewLVMBackend)
	r.Register("LVMThin", NewThinBackend)
	r.Register("ZFS", NewZFSBackend)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New constructs the Backend registered under name. An unknown name is
// a plugin-lookup failure (spec §7 EPLUGIN).
func (r *Registry) New(name string, cfg Config) (Backend, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("storage: unknown plugin %q", name)
	}
	return f(cfg)
}
