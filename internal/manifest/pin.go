package manifest

import (
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
)

// Pin marks id's entry pinned at its current version (spec.md §4.4
// "pin(names)"), idempotently: pinning an already-pinned entry is a no-op
// (testable property: pin(x); pin(x) == pin(x)).
func (m *Manifest) Pin(id uuid.UUID) error {
	e, ok := m.Entries[id]
	if !ok {
		return errors.Errorf("manifest: pin: unknown package %s", id)
	}
	e.Pinned = true
	return nil
}

// Free clears id's pinned flag and drops any path/repo tracking, returning
// it to ordinary tree_hash tracking so the next resolve is free to move it
// (spec.md §4.4 "free(names)"). Free on an unpinned, untracked entry is a
// no-op (pin(x); free(x) is the identity on x's entry modulo the pinned
// flag).
func (m *Manifest) Free(id uuid.UUID) error {
	e, ok := m.Entries[id]
	if !ok {
		return errors.Errorf("manifest: free: unknown package %s", id)
	}
	e.Pinned = false
	e.Path = ""
	e.Repo = nil
	return nil
}
