package vpm

import (
	"time"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/manifest"
)

// Instantiate implements spec.md §4.4's instantiate: bring the depot into
// agreement with the existing manifest without re-resolving — installs
// whatever manifest entries aren't yet present in the depot and leaves
// everything else untouched. Returns the manifest.Diff between the
// manifest on disk before and after (always empty in practice, since
// instantiate never changes entries, but kept symmetric with the other
// ops' dry-run reporting per SPEC_FULL.md §5.8).
func Instantiate(e *Environment, opts OpOptions, now time.Time) (*manifest.Diff, error) {
	var diff *manifest.Diff
	err := e.withLock(func() error {
		before := cloneManifest(e.Manifest)

		if err := e.installMissing(e.Manifest.Entries); err != nil {
			return err
		}

		if err := depot.AppendUsage(e.Depot.ManifestUsageLog(), manifestPath(e.Root), now); err != nil {
			return wrapIO(err, "appending manifest usage log")
		}

		diff = manifest.DiffManifests(before, e.Manifest)
		return nil
	})
	return diff, err
}
