package storage

import (
	"context"
	"fmt"
)

// FakeBackend is an in-memory Backend used by reconciler tests (spec §1
// ambient test tooling), grounded on the teacher's hand-rolled fakes in
// pkg/scheduler/scheduler_unit_test.go. It is not registered in
// NewRegistry; callers construct it directly.
type FakeBackend struct {
	devices map[string]int64 // "resource/volID" -> sizeKiB
	PoolSizeKiB int64
	PoolFreeKiB int64

	// FailCreate, if set, makes every CreateBlockdevice call fail.
	FailCreate bool
}

// NewFakeBackend returns an empty FakeBackend with an unbounded pool.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		devices:     make(map[string]int64),
		PoolSizeKiB: 1 << 30,
		PoolFreeKiB: 1 << 30,
	}
}

func fakeKey(resource string, volID int) string {
	return fmt.Sprintf("%s/%d", resource, volID)
}

// CreateBlockdevice records the device and returns a synthetic path.
func (f *FakeBackend) CreateBlockdevice(_ context.Context, resource string, volID int, sizeKiB int64) (string, error) {
	if f.FailCreate {
		return "", fmt.Errorf("fake: create failed")
	}
	key := fakeKey(resource, volID)
	if _, exists := f.devices[key]; !exists {
		f.devices[key] = sizeKiB
	}
	return "/dev/fake/" + key, nil
}

// RemoveBlockdevice deletes the recorded device, if any.
func (f *FakeBackend) RemoveBlockdevice(_ context.Context, resource string, volID int) error {
	delete(f.devices, fakeKey(resource, volID))
	return nil
}

// ExtendBlockdevice updates the recorded size, rejecting a smaller one.
func (f *FakeBackend) ExtendBlockdevice(_ context.Context, resource string, volID int, newSizeKiB int64) error {
	key := fakeKey(resource, volID)
	cur, exists := f.devices[key]
	if !exists {
		return fmt.Errorf("fake: %s does not exist", key)
	}
	if newSizeKiB < cur {
		return fmt.Errorf("fake: %s: new size %d kiB smaller than current %d kiB", key, newSizeKiB, cur)
	}
	f.devices[key] = newSizeKiB
	return nil
}

// UpdatePool returns the configured PoolSizeKiB/PoolFreeKiB.
func (f *FakeBackend) UpdatePool(_ context.Context) (int64, int64, error) {
	return f.PoolSizeKiB, f.PoolFreeKiB, nil
}

// Exists reports whether a device was created for (resource, volID).
func (f *FakeBackend) Exists(resource string, volID int) bool {
	_, ok := f.devices[fakeKey(resource, volID)]
	return ok
}
