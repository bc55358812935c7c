package localyaml

import (
	"fmt"
	"reflect"

	"github.com/jobforge/jobforge/pkg/errors"
)

// Mapping is an insertion-ordered mapping node. Key order is preserved and
// observable end to end: iteration, XML generation, and a dump-then-reload
// round trip all yield keys in the order they were first inserted. Values
// are nil, bool, int64, uint64, float64, string, []any, *Mapping, *LazyRef,
// or *LazyCollection.
type Mapping struct {
	keys   []any
	values map[any]any
}

// NewMapping creates an empty ordered mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[any]any)}
}

// Set inserts or replaces a key. Replacing keeps the key's original
// position. Non-comparable keys (nested mappings or sequences) are
// rejected with a parse error.
func (m *Mapping) Set(key, value any) error {
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return errors.NewParse(fmt.Sprintf("unacceptable mapping key %v", key), nil)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return nil
}

// Get returns the value for key and whether it was present.
func (m *Mapping) Get(key any) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key any) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (m *Mapping) Keys() []any {
	return m.keys
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// String returns the value for key rendered as a string, with def as the
// fallback for absent or nil entries.
func (m *Mapping) String(key string, def string) string {
	v, ok := m.values[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the value for key as a bool, with def as the fallback.
func (m *Mapping) Bool(key string, def bool) bool {
	v, ok := m.values[key]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Slice returns the value for key as a []any. Absent keys and scalar
// values yield nil.
func (m *Mapping) Slice(key string) []any {
	v, ok := m.values[key]
	if !ok {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

// Child returns the value for key as a nested *Mapping, or nil.
func (m *Mapping) Child(key string) *Mapping {
	v, ok := m.values[key]
	if !ok {
		return nil
	}
	if nested, ok := v.(*Mapping); ok {
		return nested
	}
	return nil
}

// Merge copies entries from other that are not already present, preserving
// other's order for the appended keys. Used for YAML merge keys, where
// explicit keys take precedence over merged ones.
func (m *Mapping) Merge(other *Mapping) {
	for _, k := range other.keys {
		if _, exists := m.values[k]; exists {
			continue
		}
		m.keys = append(m.keys, k)
		m.values[k] = other.values[k]
	}
}
