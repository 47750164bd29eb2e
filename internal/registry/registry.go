// Package registry maps dense module ordinals to module file identities and
// their direct dependencies.
package registry

import (
	"slices"
	"sync"

	"github.com/hupe1980/modindex/identity"
)

// Record is a live module slot.
type Record struct {
	File identity.ModuleFile
	// Dependencies are the module's direct imports, in recorded order.
	Dependencies []identity.ModuleFile
}

// Slot is one entry of the ordinal table: either Present or Removed.
type Slot interface {
	isSlot()
}

// Present holds a live record.
type Present struct {
	Record Record
}

// Removed is a tombstone. It keeps the ordinals of neighboring slots stable.
type Removed struct{}

func (Present) isSlot() {}
func (Removed) isSlot() {}

// Registry is the ordinal table of one index.
//
// The slot table is the source of truth and is immutable once the registry
// is shared. The reverse map is the only lazily built state.
type Registry struct {
	slots []Slot

	// reverse maps a live identity to its ordinal. It is built from slots on
	// the first call to Ordinal and cached for the registry's lifetime.
	reverseOnce sync.Once
	reverse     map[identity.ModuleFile]uint32
}

// New returns a registry over slots. The registry takes ownership of slots.
func New(slots []Slot) *Registry {
	return &Registry{slots: slots}
}

// Len returns the number of slots, tombstones included.
func (r *Registry) Len() int {
	return len(r.slots)
}

// NumLive returns the number of Present slots.
func (r *Registry) NumLive() int {
	n := 0
	for _, s := range r.slots {
		if _, ok := s.(Present); ok {
			n++
		}
	}
	return n
}

// Slot returns the slot for ordinal. Out-of-range ordinals report false.
func (r *Registry) Slot(ordinal uint32) (Slot, bool) {
	if uint64(ordinal) >= uint64(len(r.slots)) {
		return nil, false
	}
	return r.slots[ordinal], true
}

// Identity returns the identity of a live ordinal.
func (r *Registry) Identity(ordinal uint32) (identity.ModuleFile, bool) {
	s, ok := r.Slot(ordinal)
	if !ok {
		return identity.ModuleFile{}, false
	}
	switch s := s.(type) {
	case Present:
		return s.Record.File, true
	case Removed:
		return identity.ModuleFile{}, false
	default:
		panic("registry: unknown slot type")
	}
}

// Known returns the identities of all live slots in ordinal order.
func (r *Registry) Known() []identity.ModuleFile {
	out := make([]identity.ModuleFile, 0, len(r.slots))
	for _, s := range r.slots {
		if p, ok := s.(Present); ok {
			out = append(out, p.Record.File)
		}
	}
	return out
}

// Dependencies returns the direct imports recorded for id.
// An unknown or tombstoned identity yields nil.
func (r *Registry) Dependencies(id identity.ModuleFile) []identity.ModuleFile {
	ord, ok := r.Ordinal(id)
	if !ok {
		return nil
	}
	p := r.slots[ord].(Present)
	return slices.Clone(p.Record.Dependencies)
}

// Ordinal returns the ordinal of a live identity.
func (r *Registry) Ordinal(id identity.ModuleFile) (uint32, bool) {
	r.reverseOnce.Do(r.buildReverse)
	ord, ok := r.reverse[id]
	return ord, ok
}

func (r *Registry) buildReverse() {
	r.reverse = make(map[identity.ModuleFile]uint32, len(r.slots))
	for i, s := range r.slots {
		if p, ok := s.(Present); ok {
			r.reverse[p.Record.File] = uint32(i)
		}
	}
}

// Tombstone replaces a live slot with Removed and reports whether it did.
// It must only be called before the registry is shared.
func (r *Registry) Tombstone(ordinal uint32) bool {
	s, ok := r.Slot(ordinal)
	if !ok {
		return false
	}
	if _, live := s.(Present); !live {
		return false
	}
	r.slots[ordinal] = Removed{}
	return true
}
