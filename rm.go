package vpm

import (
	"time"

	"github.com/pkg/errors"
)

// Rm implements spec.md §4.4's rm(names): removes names from
// project.deps (ModeProject), from the manifest directly (ModeManifest),
// or both (ModeCombined), then prunes anything left unreachable.
func Rm(e *Environment, names []string, opts OpOptions, now time.Time) error {
	return e.withLock(func() error {
		proj := cloneProject(e.Project)
		man := cloneManifest(e.Manifest)

		for _, name := range names {
			id, ok := proj.Deps[name]
			if !ok {
				return wrapSpec(errors.Errorf("rm: %s is not a direct dependency", name), name)
			}

			if opts.Mode == ModeProject || opts.Mode == ModeCombined {
				delete(proj.Deps, name)
				delete(proj.Compat, name)
				delete(proj.Sources, name)
			}
			if opts.Mode == ModeManifest || opts.Mode == ModeCombined {
				delete(man.Entries, id)
			}
		}

		return e.commit(proj, prune(proj, man), now)
	})
}
