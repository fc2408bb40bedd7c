package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ThinBackend implements Backend over LVM thin-provisioned logical
// volumes, sharing the naming and exec conventions of LVMBackend but
// allocating from a thin pool instead of the volume group directly.
type ThinBackend struct {
	lvm  *LVMBackend
	pool string
}

// NewThinBackend constructs a thin-provisioned Backend. The thin pool
// name defaults to "<volume-group>-thinpool".
func NewThinBackend(cfg Config) (Backend, error) {
	base, err := NewLVMBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &ThinBackend{
		lvm:  base.(*LVMBackend),
		pool: cfg.VolumeGroup + "-thinpool",
	}, nil
}

// CreateBlockdevice creates a thin logical volume carved out of the
// pool if absent, returning its path either way.
func (b *ThinBackend) CreateBlockdevice(ctx context.Context, resource string, volID int, sizeKiB int64) (string, error) {
	already, err := b.lvm.exists(ctx, resource, volID)
	if err != nil {
		return "", err
	}
	if already {
		return b.lvm.devPath(resource, volID), nil
	}

	cmd := b.lvm.command(ctx, "lvcreate",
		"--thin", "-n", b.lvm.lvName(resource, volID),
		"-V", strconv.FormatInt(sizeKiB, 10)+"k",
		"--thinpool", b.pool,
		b.lvm.vg,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("storage: lvcreate --thin %s: %w (%s)", b.lvm.lvName(resource, volID), err, strings.TrimSpace(string(out)))
	}
	return b.lvm.devPath(resource, volID), nil
}

// RemoveBlockdevice removes the thin logical volume; a missing one is
// not an error.
func (b *ThinBackend) RemoveBlockdevice(ctx context.Context, resource string, volID int) error {
	return b.lvm.RemoveBlockdevice(ctx, resource, volID)
}

// ExtendBlockdevice grows the thin logical volume's virtual size to
// newSizeKiB; actual pool consumption still follows real usage.
func (b *ThinBackend) ExtendBlockdevice(ctx context.Context, resource string, volID int, newSizeKiB int64) error {
	return b.lvm.ExtendBlockdevice(ctx, resource, volID, newSizeKiB)
}

// UpdatePool reports the thin pool's total and free virtual capacity.
func (b *ThinBackend) UpdatePool(ctx context.Context) (int64, int64, error) {
	cmd := b.lvm.command(ctx, "lvs", "--noheadings", "--units", "k", "--nosuffix",
		"-o", "lv_size,data_percent", fmt.Sprintf("%s/%s", b.lvm.vg, b.pool))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("storage: lvs %s: %w (%s)", b.pool, err, strings.TrimSpace(string(out)))
	}
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("storage: lvs %s: unexpected output %q", b.pool, string(out))
	}
	sizeKiB, err := parseKiB(fields[0])
	if err != nil {
		return 0, 0, err
	}
	usedPct, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: parse data_percent %q: %w", fields[1], err)
	}
	freeKiB := sizeKiB - int64(float64(sizeKiB)*usedPct/100.0)
	return sizeKiB, freeKiB, nil
}
