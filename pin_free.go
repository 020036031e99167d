package vpm

import (
	"time"

	"github.com/pkg/errors"
)

// Pin implements spec.md §4.4's pin(names): marks each named manifest
// entry pinned at its current version. Idempotent — pinning an
// already-pinned entry is a no-op (testable property: pin(x); pin(x) ==
// pin(x)) — and never re-resolves, since a pinned entry's version is by
// definition no longer subject to selection.
func Pin(e *Environment, names []string, now time.Time) error {
	return e.withLock(func() error {
		man := cloneManifest(e.Manifest)
		for _, name := range names {
			id, ok := e.Project.Deps[name]
			if !ok {
				return wrapSpec(errors.Errorf("pin: %s is not a direct dependency", name), name)
			}
			if err := man.Pin(id); err != nil {
				return wrapSpec(err, name)
			}
		}
		return e.commit(e.Project, man, now)
	})
}

// Free implements spec.md §4.4's free(names): clears the pinned flag and
// any path/repo tracking, then re-resolves — unlike Pin, Free always
// re-runs the resolver, since a freed entry's dependents may have shifted
// in the interim (testable property: pin(x); free(x) is the identity on
// x's entry modulo the pinned flag, when nothing else changed).
func Free(e *Environment, names []string, opts OpOptions, now time.Time) error {
	return e.withLock(func() error {
		man := cloneManifest(e.Manifest)
		for _, name := range names {
			id, ok := e.Project.Deps[name]
			if !ok {
				return wrapSpec(errors.Errorf("free: %s is not a direct dependency", name), name)
			}
			if err := man.Free(id); err != nil {
				return wrapSpec(err, name)
			}
		}

		savedManifest := e.Manifest
		e.Manifest = man
		newManifest, err := e.resolveAndInstall(requirementsFromProject(e.Project), opts)
		e.Manifest = savedManifest
		if err != nil {
			return err
		}
		return e.commit(e.Project, newManifest, now)
	})
}
