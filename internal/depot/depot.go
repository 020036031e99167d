// Package depot implements spec.md §4.6's shared package store: the
// on-disk layout under a depot root, append-then-coalesce usage logs,
// and mark-and-sweep garbage collection with a collect-delay grace
// period. Grounded on golang-dep's txn_writer.go safe-write pattern for
// the log-append step and on karrick/godirwalk for the reachability and
// sweep walks.
package depot

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/treehash"
)

// slugMarkerSuffix names the sidecar file recording a materialized slug
// directory's full tree hash, mirroring internal/filehash's ".sha256"
// sidecar convention.
const slugMarkerSuffix = ".hash"

// minSlugLen is spec.md §6's starting slug length: "the first 8 hex
// chars of the tree hash".
const minSlugLen = 8

// Depot is a single content-addressed store shared across projects
// (spec.md §4.6): packages/, artifacts/, clones/, scratchspaces/, logs/,
// registries/, environments/ live directly under Root.
type Depot struct {
	Root string
}

// Open returns a Depot rooted at root, creating the standard
// subdirectories if they don't already exist.
func Open(root string) (*Depot, error) {
	d := &Depot{Root: root}
	for _, sub := range []string{"packages", "artifacts", "clones", "scratchspaces", "logs", "registries", "environments"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "depot: creating %s", sub)
		}
	}
	return d, nil
}

func (d *Depot) PackagesDir() string      { return filepath.Join(d.Root, "packages") }
func (d *Depot) ArtifactsDir() string     { return filepath.Join(d.Root, "artifacts") }
func (d *Depot) ClonesDir() string        { return filepath.Join(d.Root, "clones") }
func (d *Depot) ScratchspacesDir() string { return filepath.Join(d.Root, "scratchspaces") }
func (d *Depot) LogsDir() string          { return filepath.Join(d.Root, "logs") }
func (d *Depot) RegistriesDir() string    { return filepath.Join(d.Root, "registries") }
func (d *Depot) EnvironmentsDir() string  { return filepath.Join(d.Root, "environments") }

// PackageDir resolves name@hash's content-addressed directory: spec.md §6
// lays this out as `packages/<name>/<8-char-slug-of-tree-hash>`, with
// collisions against a different tree hash under the same prefix resolved
// by extending the slug one hex character at a time. A materialized slug
// directory carries a sibling "<slug>.hash" marker (written by
// MarkPackageSlug once the installer places it) recording its full hash,
// so a later call — including GC's reachability walk — can tell a
// same-prefix collision from the same content apart without re-hashing
// the tree on disk.
func (d *Depot) PackageDir(name string, hash treehash.Hash) (string, error) {
	base := filepath.Join(d.PackagesDir(), name)
	full := hash.String()
	for n := minSlugLen; n <= len(full); n++ {
		slug := hash.Slug(n)
		dir := filepath.Join(base, slug)
		marker, err := os.ReadFile(dir + slugMarkerSuffix)
		switch {
		case os.IsNotExist(err):
			return dir, nil // free slug: caller may materialize here
		case err != nil:
			return "", errors.Wrapf(err, "depot: reading slug marker for %s", dir)
		case string(marker) == full:
			return dir, nil // already ours
		}
		// occupied by a different hash under this prefix: extend the slug
	}
	return "", errors.Errorf("depot: %s: slug collisions exhausted hash length for %s", name, full)
}

// MarkPackageSlug records dir's full tree hash in its sidecar marker. The
// installer calls this immediately after materializing dir, so later
// PackageDir/GC lookups can identify the slug without re-hashing.
func MarkPackageSlug(dir string, hash treehash.Hash) error {
	return errors.Wrapf(os.WriteFile(dir+slugMarkerSuffix, []byte(hash.String()), 0o644), "depot: marking slug %s", dir)
}

// ArtifactDir is the content-addressed artifact directory for a tree hash.
func (d *Depot) ArtifactDir(hash string) string { return filepath.Join(d.ArtifactsDir(), hash) }
