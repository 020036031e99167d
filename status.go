package vpm

import (
	"os"

	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
)

// EntryStatus reports a single manifest entry's verification state
// against the depot, generalizing golang-dep's status.go vendor-checksum
// report from a vendor/ tree to depot package directories.
type EntryStatus struct {
	UUID uuid.UUID
	Name string

	// Tracking is "path", "repo", "tree_hash", or "" (pinned with no
	// active tracking override), per manifest.Entry.Tracking.
	Tracking string

	// Present reports whether the entry's package directory exists on
	// disk at all (depot package dir for tree_hash entries, the tracked
	// path for path entries; always true for repo-tracked entries once
	// cloned).
	Present bool

	// HashOK is only meaningful for tree_hash-tracked entries: true when
	// the on-disk directory's recomputed tree hash still matches the
	// manifest's recorded hash.
	HashOK bool
}

// Status implements SPEC_FULL.md §5.8's vpm status: for every manifest
// entry, report whether its content exists in the depot and, for
// tree_hash-tracked entries, whether a fresh tree-hash recompute still
// matches what the manifest recorded — surfacing local corruption or
// manual edits the same way golang-dep's status command flags a vendor
// tree that drifted from Gopkg.lock.
func Status(e *Environment) ([]EntryStatus, error) {
	out := make([]EntryStatus, 0, len(e.Manifest.Entries))

	for id, entry := range e.Manifest.Entries {
		st := EntryStatus{UUID: id, Name: entry.Name, Tracking: entry.Tracking()}

		switch st.Tracking {
		case "path":
			st.Present = isDir(entry.Path)
			st.HashOK = st.Present
		case "repo":
			dest := e.Depot.ClonesDir() + "/" + id.String()
			st.Present = isDir(dest)
			st.HashOK = st.Present
		case "tree_hash":
			dir, err := e.Depot.PackageDir(entry.Name, *entry.TreeHash)
			if err != nil {
				return nil, err
			}
			st.Present = isDir(dir)
			if st.Present {
				st.HashOK = verifyTreeHash(dir, *entry.TreeHash)
			}
		default:
			st.Present = true
			st.HashOK = true
		}

		out = append(out, st)
	}
	return out, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func verifyTreeHash(dir string, want treehash.Hash) bool {
	got, err := treehash.Compute(dir)
	return err == nil && got == want
}
