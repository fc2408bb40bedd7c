// Package props implements the ordered string-to-string property bag
// shared by every domain entity (spec C1).
package props

import (
	"encoding/json"
	"strings"

	"github.com/elliotchance/orderedmap"
)

// AuxPrefix is the only prefix a client may inject through a mutator's
// "props" parameter. Everything else is dropped by Select.
const AuxPrefix = "aux/"

// Container is an ordered string->string map. Iteration order follows
// insertion order, matching the original property container's semantics.
type Container struct {
	m *orderedmap.OrderedMap
}

// New returns an empty property container.
func New() *Container {
	return &Container{m: orderedmap.NewOrderedMap()}
}

// Get returns the value for key and whether it was present.
func (c *Container) Get(key string) (string, bool) {
	v, ok := c.m.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// GetDefault returns the value for key, or def if absent.
func (c *Container) GetDefault(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Set stores a single key/value pair, appending it if new.
func (c *Container) Set(key, value string) {
	c.m.Set(key, value)
}

// Remove deletes key, returning whether it was present.
func (c *Container) Remove(key string) bool {
	return c.m.Delete(key)
}

// Len returns the number of stored keys.
func (c *Container) Len() int {
	return c.m.Len()
}

// Keys returns all keys in insertion order.
func (c *Container) Keys() []string {
	keys := make([]string, 0, c.m.Len())
	for el := c.m.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key.(string))
	}
	return keys
}

// Map copies the container into a plain map, losing order. Used only for
// serialization/JSON round-tripping, never for iteration logic.
func (c *Container) Map() map[string]string {
	out := make(map[string]string, c.m.Len())
	for el := c.m.Front(); el != nil; el = el.Next() {
		out[el.Key.(string)] = el.Value.(string)
	}
	return out
}

// entry is the wire form of a single key/value pair, used to preserve
// insertion order across JSON (de)serialization.
type entry struct {
	K string `json:"k"`
	V string `json:"v"`
}

// MarshalJSON serializes the container as an ordered array of entries so
// that save/load round trips reproduce the exact byte image (spec §3
// invariant 7: the hash changes iff the serialized image changes).
func (c *Container) MarshalJSON() ([]byte, error) {
	entries := make([]entry, 0, c.Len())
	for el := c.m.Front(); el != nil; el = el.Next() {
		entries = append(entries, entry{K: el.Key.(string), V: el.Value.(string)})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores a container from the ordered array produced by
// MarshalJSON.
func (c *Container) UnmarshalJSON(data []byte) error {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.m = orderedmap.NewOrderedMap()
	for _, e := range entries {
		c.m.Set(e.K, e.V)
	}
	return nil
}

// FromMap rebuilds an ordered Container from a plain map. Order is not
// recoverable across a map round trip; callers that need a stable order
// (e.g. persistence) should go through MarshalJSON/UnmarshalJSON instead.
func FromMap(m map[string]string) *Container {
	c := New()
	for k, v := range m {
		c.Set(k, v)
	}
	return c
}

// MergeGen replaces values for existing keys and appends new ones from
// src, preserving src's insertion order for newly added keys.
func (c *Container) MergeGen(src *Container) {
	if src == nil {
		return
	}
	for el := src.m.Front(); el != nil; el = el.Next() {
		c.m.Set(el.Key.(string), el.Value.(string))
	}
}

// Select filters a plain map down to only the aux/-prefixed keys a
// mutator is permitted to inject, returning them as an ordered Container.
// Unknown non-aux keys are silently dropped, per spec §4.1.
func Select(in map[string]string) *Container {
	out := New()
	for k, v := range in {
		if strings.HasPrefix(k, AuxPrefix) {
			out.Set(k, v)
		}
	}
	return out
}

// Clone returns a deep copy of c.
func (c *Container) Clone() *Container {
	out := New()
	for el := c.m.Front(); el != nil; el = el.Next() {
		out.Set(el.Key.(string), el.Value.(string))
	}
	return out
}

// Equal reports whether c and other contain the same keys and values,
// ignoring iteration order (used by round-trip structural equality
// checks, spec §8 P5).
func (c *Container) Equal(other *Container) bool {
	if other == nil {
		return c == nil || c.Len() == 0
	}
	if c.Len() != other.Len() {
		return false
	}
	for el := c.m.Front(); el != nil; el = el.Next() {
		v, ok := other.Get(el.Key.(string))
		if !ok || v != el.Value.(string) {
			return false
		}
	}
	return true
}
