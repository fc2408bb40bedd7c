package storage

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LVMBackend implements Backend over plain LVM logical volumes via the
// lvcreate/lvremove/lvextend/vgs command-line tools.
type LVMBackend struct {
	vg  string
	bin string
}

// NewLVMBackend constructs a Backend backed by cfg.VolumeGroup.
func NewLVMBackend(cfg Config) (Backend, error) {
	if cfg.VolumeGroup == "" {
		return nil, fmt.Errorf("storage: lvm backend requires a volume group")
	}
	return &LVMBackend{vg: cfg.VolumeGroup, bin: cfg.BinaryPath}, nil
}

func (b *LVMBackend) lvName(resource string, volID int) string {
	return fmt.Sprintf("%s_%02d", resource, volID)
}

func (b *LVMBackend) devPath(resource string, volID int) string {
	return fmt.Sprintf("/dev/%s/%s", b.vg, b.lvName(resource, volID))
}

func (b *LVMBackend) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, b.tool(name), args...)
	return cmd
}

func (b *LVMBackend) tool(name string) string {
	if b.bin == "" {
		return name
	}
	return b.bin + "/" + name
}

func (b *LVMBackend) exists(ctx context.Context, resource string, volID int) (bool, error) {
	cmd := b.command(ctx, "lvs", "--noheadings", "-o", "lv_name", fmt.Sprintf("%s/%s", b.vg, b.lvName(resource, volID)))
	out, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "Failed to find") || strings.Contains(string(out), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("storage: lvs %s: %w (%s)", b.lvName(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// CreateBlockdevice creates the logical volume if absent, returning its
// path either way (idempotent per spec §4.5).
func (b *LVMBackend) CreateBlockdevice(ctx context.Context, resource string, volID int, sizeKiB int64) (string, error) {
	already, err := b.exists(ctx, resource, volID)
	if err != nil {
		return "", err
	}
	if already {
		return b.devPath(resource, volID), nil
	}

	cmd := b.command(ctx, "lvcreate",
		"-n", b.lvName(resource, volID),
		"-L", strconv.FormatInt(sizeKiB, 10)+"k",
		b.vg,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("storage: lvcreate %s: %w (%s)", b.lvName(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return b.devPath(resource, volID), nil
}

// RemoveBlockdevice removes the logical volume; a missing one is not an
// error.
func (b *LVMBackend) RemoveBlockdevice(ctx context.Context, resource string, volID int) error {
	already, err := b.exists(ctx, resource, volID)
	if err != nil {
		return err
	}
	if !already {
		return nil
	}
	cmd := b.command(ctx, "lvremove", "-f", fmt.Sprintf("%s/%s", b.vg, b.lvName(resource, volID)))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("storage: lvremove %s: %w (%s)", b.lvName(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ExtendBlockdevice grows the logical volume to newSizeKiB.
func (b *LVMBackend) ExtendBlockdevice(ctx context.Context, resource string, volID int, newSizeKiB int64) error {
	cmd := b.command(ctx, "lvextend", "-L", strconv.FormatInt(newSizeKiB, 10)+"k",
		fmt.Sprintf("%s/%s", b.vg, b.lvName(resource, volID)))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("storage: lvextend %s: %w (%s)", b.lvName(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// UpdatePool reports the volume group's total and free extents,
// converted to KiB.
func (b *LVMBackend) UpdatePool(ctx context.Context) (int64, int64, error) {
	cmd := b.command(ctx, "vgs", "--noheadings", "--units", "k", "--nosuffix",
		"-o", "vg_size,vg_free", b.vg)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("storage: vgs %s: %w (%s)", b.vg, err, strings.TrimSpace(string(out)))
	}
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("storage: vgs %s: unexpected output %q", b.vg, string(out))
	}
	sizeKiB, err := parseKiB(fields[0])
	if err != nil {
		return 0, 0, err
	}
	freeKiB, err := parseKiB(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return sizeKiB, freeKiB, nil
}

func parseKiB(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("storage: parse size %q: %w", s, err)
	}
	return int64(f), nil
}
