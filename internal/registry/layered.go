package registry

import (
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// Layered consults multiple registries in order (spec.md §4.2: "Multiple
// registries may be layered; lookups consult each in order"). A tree_hash
// disagreement across registries for the same (uuid, version) is fatal.
type Layered struct {
	Indexes []*Index
}

// Package returns the merged view of id across every layered registry that
// knows it: versions are the union, and a tree_hash disagreement for the
// same (uuid, version) across registries is reported as *ErrHashMismatch.
// Per-version compat/deps rows come from the first (highest-priority)
// registry that defines that version.
func (l *Layered) Package(id uuid.UUID) (*PackageEntry, error) {
	var merged *PackageEntry

	for _, idx := range l.Indexes {
		if !idx.Has(id) {
			continue
		}
		entry, err := idx.Package(id)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = &PackageEntry{
				UUID:             entry.UUID,
				Name:             entry.Name,
				Repo:             entry.Repo,
				Subdir:           entry.Subdir,
				Versions:         map[version.Version]VersionInfo{},
				CompatByName:     map[version.Version]map[string]version.VersionSpec{},
				DepsByName:       map[version.Version]map[string]uuid.UUID{},
				WeakCompatByName: map[version.Version]map[string]version.VersionSpec{},
				WeakDepsByName:   map[version.Version]map[string]uuid.UUID{},
			}
		}
		if merged.Name != entry.Name {
			return nil, errors.Wrapf(ErrNameConflict, "uuid %s", id)
		}
		for v, info := range entry.Versions {
			if prev, ok := merged.Versions[v]; ok && prev.TreeHash != info.TreeHash {
				return nil, &ErrHashMismatch{UUID: id, Version: v}
			}
			if _, already := merged.Versions[v]; !already {
				merged.Versions[v] = info
				merged.CompatByName[v] = entry.CompatByName[v]
				merged.DepsByName[v] = entry.DepsByName[v]
				merged.WeakCompatByName[v] = entry.WeakCompatByName[v]
				merged.WeakDepsByName[v] = entry.WeakDepsByName[v]
			}
		}
	}

	if merged == nil {
		return nil, errors.Errorf("registry: unknown package uuid %s", id)
	}
	return merged, nil
}

// Has reports whether any layered registry's top-level index knows id.
func (l *Layered) Has(id uuid.UUID) bool {
	for _, idx := range l.Indexes {
		if idx.Has(id) {
			return true
		}
	}
	return false
}
