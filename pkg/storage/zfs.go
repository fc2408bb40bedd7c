package storage

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ZFSBackend implements Backend over ZFS zvols via the zfs command-line
// tool.
type ZFSBackend struct {
	pool string
	bin  string
}

// NewZFSBackend constructs a Backend backed by the ZFS pool named in
// cfg.VolumeGroup (the generic "pool name" configuration slot is reused
// for the ZFS pool here, matching spec §6's single drbdctrl-vg/
// storage-plugin-scoped configuration surface).
func NewZFSBackend(cfg Config) (Backend, error) {
	if cfg.VolumeGroup == "" {
		return nil, fmt.Errorf("storage: zfs backend requires a pool name")
	}
	return &ZFSBackend{pool: cfg.VolumeGroup, bin: cfg.BinaryPath}, nil
}

func (b *ZFSBackend) dataset(resource string, volID int) string {
	return fmt.Sprintf("%s/%s_%02d", b.pool, resource, volID)
}

func (b *ZFSBackend) devPath(resource string, volID int) string {
	return "/dev/zvol/" + b.dataset(resource, volID)
}

func (b *ZFSBackend) command(ctx context.Context, args ...string) *exec.Cmd {
	tool := "zfs"
	if b.bin != "" {
		tool = b.bin + "/zfs"
	}
	return exec.CommandContext(ctx, tool, args...)
}

func (b *ZFSBackend) exists(ctx context.Context, resource string, volID int) (bool, error) {
	cmd := b.command(ctx, "list", "-H", "-o", "name", b.dataset(resource, volID))
	out, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "dataset does not exist") {
			return false, nil
		}
		return false, fmt.Errorf("storage: zfs list %s: %w (%s)", b.dataset(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// CreateBlockdevice creates the zvol if absent, returning its path
// either way.
func (b *ZFSBackend) CreateBlockdevice(ctx context.Context, resource string, volID int, sizeKiB int64) (string, error) {
	already, err := b.exists(ctx, resource, volID)
	if err != nil {
		return "", err
	}
	if already {
		return b.devPath(resource, volID), nil
	}

	cmd := b.command(ctx, "create", "-V", strconv.FormatInt(sizeKiB, 10)+"K", b.dataset(resource, volID))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("storage: zfs create %s: %w (%s)", b.dataset(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return b.devPath(resource, volID), nil
}

// RemoveBlockdevice destroys the zvol; a missing one is not an error.
func (b *ZFSBackend) RemoveBlockdevice(ctx context.Context, resource string, volID int) error {
	already, err := b.exists(ctx, resource, volID)
	if err != nil {
		return err
	}
	if !already {
		return nil
	}
	cmd := b.command(ctx, "destroy", b.dataset(resource, volID))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("storage: zfs destroy %s: %w (%s)", b.dataset(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ExtendBlockdevice grows the zvol's volsize property to newSizeKiB,
// rejecting a newSizeKiB smaller than the current volsize.
func (b *ZFSBackend) ExtendBlockdevice(ctx context.Context, resource string, volID int, newSizeKiB int64) error {
	out, err := b.command(ctx, "get", "-H", "-p", "-o", "value", "volsize", b.dataset(resource, volID)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("storage: zfs get volsize %s: %w (%s)", b.dataset(resource, volID), err, strings.TrimSpace(string(out)))
	}
	curBytes, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return fmt.Errorf("storage: parse volsize %q: %w", strings.TrimSpace(string(out)), err)
	}
	if newSizeKiB*1024 < curBytes {
		return fmt.Errorf("storage: zfs %s: new size %dK is smaller than current size %dK", b.dataset(resource, volID), newSizeKiB, curBytes/1024)
	}
	cmd := b.command(ctx, "set", fmt.Sprintf("volsize=%dK", newSizeKiB), b.dataset(resource, volID))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("storage: zfs set volsize %s: %w (%s)", b.dataset(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// UpdatePool reports the ZFS pool's total and free capacity via zpool
// list.
func (b *ZFSBackend) UpdatePool(ctx context.Context) (int64, int64, error) {
	tool := "zpool"
	if b.bin != "" {
		tool = b.bin + "/zpool"
	}
	cmd := exec.CommandContext(ctx, tool, "list", "-H", "-p", "-o", "size,free", b.pool)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("storage: zpool list %s: %w (%s)", b.pool, err, strings.TrimSpace(string(out)))
	}
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("storage: zpool list %s: unexpected output %q", b.pool, string(out))
	}
	sizeBytes, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: parse pool size %q: %w", fields[0], err)
	}
	freeBytes, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: parse pool free %q: %w", fields[1], err)
	}
	return sizeBytes / 1024, freeBytes / 1024, nil
}
