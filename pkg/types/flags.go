package types

// Flags is a bitmask for a cstate/tstate field. The concrete bit layout
// is private to this package; callers combine the named constants below
// with bitwise OR.
type Flags uint32

// Has reports whether every bit in mask is set in f.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Any reports whether at least one bit in mask is set in f.
func (f Flags) Any(mask Flags) bool { return f&mask != 0 }

// Set returns f with every bit in mask set.
func (f Flags) Set(mask Flags) Flags { return f | mask }

// Clear returns f with every bit in mask cleared.
func (f Flags) Clear(mask Flags) Flags { return f &^ mask }

// Assignment cstate/tstate flags (spec §3).
const (
	FlagDeploy Flags = 1 << iota
	FlagAttach
	FlagConnect
	FlagDiskless
	FlagOverwrite
	FlagDiscard
	FlagReconnect
	FlagUpdCon
	FlagUpdConfig
)

// VolumeState cstate/tstate flags. Reuses FlagDeploy/FlagAttach from the
// Assignment set; a VolumeState only ever uses these two bits.
const (
	VolStateDeploy = FlagDeploy
	VolStateAttach = FlagAttach
)

// Node.State flags.
const (
	NodeUpdate Flags = 1 << iota
	NodeRemove
	NodeQuorumIgnore
)

// Resource.State and Volume.State flags.
const (
	EntityRemove Flags = 1 << iota
)

// SnapshotAssignment/SnapshotVolumeState cstate/tstate flags.
const (
	SnapDeploy Flags = 1 << iota
)
