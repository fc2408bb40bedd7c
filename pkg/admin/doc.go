// Package admin wraps the external drbdadm/drbdsetup tools (spec C6):
// writing the per-resource .res configuration file at a deterministic
// path, and invoking adjust/down/primary/secondary/attach/detach/
// connect/disconnect/new_current_uuid as subprocesses.
//
// The .res template is grounded on the ceph-csi example's text/template
// use for ceph.conf/keyring generation (pkg/cephfs/cephconf.go): a
// fixed template plus atomic write-temp-then-rename, rather than manual
// string concatenation. The exec-wrapper shape — exec.CommandContext,
// numeric exit status surfaced to the caller rather than treated as a
// Go error — is grounded on pkg/storage's lvm/zfs backends (C5) and on
// the teacher's pkg/runtime/containerd.go StopContainer, whose
// graceful-signal-then-force-kill timeout shape is the model for
// admin's context-with-timeout command execution.
package admin
