package persistence

import (
	"context"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

// Error distinguishes a persistence-layer failure from any other error a
// caller might see, per spec §4.4's "distinguished PersistenceError" and
// §7's EPERSIST classification.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "persistence: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Gateway opens Sessions against the control volume. Exactly one Gateway
// is wired per daemon instance (spec §9: "the daemon owns exactly one
// ClusterConfig instance"; the Gateway is the sole path in or out of it).
type Gateway interface {
	// Open acquires an advisory lock on the underlying medium — exclusive
	// when writable, shared otherwise — and reads the stored hash. The
	// returned Session must be closed.
	Open(ctx context.Context, writable bool) (Session, error)
}

// Session is one open→close cycle against the persisted cluster image
// (spec §4.4). A generation, per spec §3 invariant 4, spans one such
// cycle for a writable Session.
type Session interface {
	// StoredHash returns the sha256 digest of the image currently on
	// disk, or nil if nothing has ever been saved.
	StoredHash() []byte

	// Load deserializes the stored image into into, replacing its
	// contents entirely.
	Load(into *types.ClusterConfig) error

	// Save serializes from, writes it durably, and returns the new
	// stored hash. Save is only valid on a Session opened writable.
	Save(from *types.ClusterConfig) ([]byte, error)

	// Close releases the advisory lock. Idempotent.
	Close() error
}
