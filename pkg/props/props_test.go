package props

import (
	"encoding/json"
	"testing"
)

func TestSelectDropsNonAuxKeys(t *testing.T) {
	in := map[string]string{
		"aux/owner": "alice",
		"port":      "7000",
		"aux/team":  "storage",
	}

	out := Select(in)

	if out.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", out.Len())
	}
	if v, ok := out.Get("port"); ok {
		t.Fatalf("non-aux key leaked through Select: port=%q", v)
	}
	if v, _ := out.Get("aux/owner"); v != "alice" {
		t.Errorf("aux/owner = %q, want alice", v)
	}
}

func TestMergeGenReplacesAndAppends(t *testing.T) {
	base := New()
	base.Set("aux/a", "1")
	base.Set("aux/b", "2")

	incoming := New()
	incoming.Set("aux/b", "20")
	incoming.Set("aux/c", "3")

	base.MergeGen(incoming)

	if v, _ := base.Get("aux/b"); v != "20" {
		t.Errorf("aux/b = %q, want 20 (should be replaced)", v)
	}
	if v, _ := base.Get("aux/c"); v != "3" {
		t.Errorf("aux/c = %q, want 3 (should be appended)", v)
	}
	if base.Len() != 3 {
		t.Errorf("Len() = %d, want 3", base.Len())
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	c := New()
	c.Set("z", "1")
	c.Set("a", "2")
	c.Set("m", "3")

	want := []string{"z", "a", "m"}
	got := c.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := New()
	c.Set("aux/one", "1")
	c.Set("aux/two", "2")

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored := New()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if !c.Equal(restored) {
		t.Errorf("round-tripped container not equal to original")
	}
	if restored.Keys()[0] != "aux/one" {
		t.Errorf("order not preserved across round trip: %v", restored.Keys())
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := New()
	a.Set("x", "1")
	a.Set("y", "2")

	b := New()
	b.Set("y", "2")
	b.Set("x", "1")

	if !a.Equal(b) {
		t.Error("Equal() should ignore insertion order")
	}
}
