package manifest

import (
	"sort"

	"github.com/vellum-lang/vpm/internal/uuid"
)

// Diff is a LockDiff-equivalent (SPEC_FULL.md §5.8): the set of per-entry
// differences between two manifests, named by UUID and reported in UUID
// string order for stable output. Used by instantiate's dry-run report and by
// tests asserting preservation-policy behavior.
type Diff struct {
	Added    []uuid.UUID
	Removed  []uuid.UUID
	Modified []uuid.UUID
}

// DiffManifests compares old against new, reporting added, removed, and
// version-or-tracking-modified entries.
func DiffManifests(old, updated *Manifest) *Diff {
	d := &Diff{}

	for id, ne := range updated.Entries {
		oe, existed := old.Entries[id]
		if !existed {
			d.Added = append(d.Added, id)
			continue
		}
		if entryChanged(oe, ne) {
			d.Modified = append(d.Modified, id)
		}
	}
	for id := range old.Entries {
		if _, ok := updated.Entries[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	sortUUIDs(d.Added)
	sortUUIDs(d.Removed)
	sortUUIDs(d.Modified)
	return d
}

func entryChanged(a, b *Entry) bool {
	if a.Pinned != b.Pinned || a.Path != b.Path {
		return true
	}
	switch {
	case a.Version == nil && b.Version == nil:
	case a.Version == nil || b.Version == nil:
		return true
	case !a.Version.Equal(*b.Version):
		return true
	}
	switch {
	case a.TreeHash == nil && b.TreeHash == nil:
	case a.TreeHash == nil || b.TreeHash == nil:
		return true
	case *a.TreeHash != *b.TreeHash:
		return true
	}
	return false
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
