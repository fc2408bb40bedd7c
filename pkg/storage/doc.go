/*
Package storage implements the C5 storage backend: the pluggable
interface through which the reconciliation engine allocates and frees
the block devices backing DRBD volumes.

# Architecture

	Reconciler ──► Backend interface ──► Registry (name → Factory)
	                                        ├── lvm   (LVM logical volumes)
	                                        ├── thin  (LVM thin-provisioned LVs)
	                                        └── zfs   (ZFS zvols)

A Backend is selected by name (the server config's storage-plugin key,
spec §6) through Registry.New. Every implementation wraps the
corresponding command-line tool via os/exec, following the same
exec-and-check-exit-status idiom as pkg/admin.

# Idempotence

Per spec §4.5, every Backend method is idempotent: creating an
already-existing device returns its current path instead of failing,
and removing a missing device succeeds silently. This matters because
the reconciler may retry an Assignment after a partial failure without
first checking whether the previous attempt actually got as far as
creating the device.
*/
package storage
