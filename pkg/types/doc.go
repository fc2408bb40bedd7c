/*
Package types defines the cluster configuration's domain model: the
entities a drbdmanaged daemon loads from, mutates, and saves back to the
persistence gateway.

# Core entities

  - Node: a cluster member, identified by name, holding a node_id used on
    the control resource and a pool-size/pool-free pair reported by the
    storage backend.
  - Resource: a named DRBD resource, owning its Volumes and Snapshots.
  - Volume: a resource's numbered volume, carrying gross/net size and a
    minor number.
  - Assignment: the (Node, Resource) relation — whether and how a
    resource is deployed onto a node — carrying independent current
    (cstate) and target (tstate) state bitfields plus per-volume
    VolumeStates.
  - Snapshot, SnapshotAssignment, SnapshotVolumeState: the point-in-time
    counterparts of Resource/Assignment/VolumeState.

# Ownership

Resource exclusively owns its Volumes and Snapshots. Assignment is
conceptually an edge between a Node and a Resource rather than a value
owned by either; to avoid cyclic pointers, Assignments live in
ClusterConfig's central store keyed by (node name, resource name), and
Node/Resource hold name-based references resolved through ClusterConfig
lookup helpers rather than owning pointers directly.

# State flags

cstate/tstate are independent bitmasks. Node, Resource, Volume and
Assignment expose Set…Flags/Clear…Flags/Set… methods per flagged field
(for example Assignment's SetTStateFlags/ClearTStateFlags/SetTState), so
that RPC-level "set mask / clear mask" pairs reduce to two calls against
the same bitfield, per the set_flags/clear_flags/set(value) contract.
VolumeState has only the Set…Flags/Clear…Flags pair, and
SnapshotAssignment only Set…Flags.
*/
package types
