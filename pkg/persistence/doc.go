// Package persistence implements the control-volume gateway (spec C4):
// open-with-lock, load-if-hash-changed, save-with-new-hash. FileGateway
// is grounded on the advisory-locking shape of the teacher's
// pkg/storage/boltdb.go (one backing file, one mutex-equivalent guarding
// every read/write), generalized from an in-process mutex to an
// inter-process syscall.Flock because the real medium here is the
// DRBD-replicated control volume shared across nodes, not a
// single-process embedded database.
//
// The single-blob warm-start mirror in persistence/internal/localcache
// is adapted from the same file's bucket-per-entity pattern, collapsed
// to one bucket holding one blob: spec §3 treats ClusterConfig as one
// atomic unit with no partial updates on disk, so there is nothing for
// per-entity buckets to buy here.
package persistence
