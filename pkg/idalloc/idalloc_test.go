package idalloc

import "testing"

func TestFreeNumberSmallestUnused(t *testing.T) {
	cases := []struct {
		name     string
		min, max int
		used     []int
		want     int
	}{
		{"empty range fully free", 0, 10, nil, 0},
		{"gap in middle", 0, 10, []int{0, 1, 2, 4}, 3},
		{"out of range values ignored", 5, 10, []int{0, 1, 5, 6}, 7},
		{"unsorted input", 0, 5, []int{3, 0, 1}, 2},
		{"fully exhausted", 0, 2, []int{0, 1, 2}, ErrExhausted},
		{"inverted range", 5, 0, nil, ErrExhausted},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := FreeNumber(c.min, c.max, c.used)
			if got != c.want {
				t.Errorf("FreeNumber(%d,%d,%v) = %d, want %d", c.min, c.max, c.used, got, c.want)
			}
		})
	}
}

func TestFreeNumberOrderIndependent(t *testing.T) {
	a := FreeNumber(0, 100, []int{5, 3, 1, 4, 2, 0})
	b := FreeNumber(0, 100, []int{0, 1, 2, 3, 4, 5})
	if a != b {
		t.Errorf("FreeNumber order dependence: %d != %d", a, b)
	}
}

func TestFreeNumberSortedMatchesFreeNumber(t *testing.T) {
	used := []int{0, 1, 2, 4, 5}
	got := FreeNumberSorted(0, 10, used)
	want := FreeNumber(0, 10, used)
	if got != want {
		t.Errorf("FreeNumberSorted = %d, want %d (matching FreeNumber)", got, want)
	}
}

func TestVolumeIDWithinResource(t *testing.T) {
	got := VolumeID(7, []int{0, 1, 2})
	if got != 3 {
		t.Errorf("VolumeID = %d, want 3", got)
	}
}
