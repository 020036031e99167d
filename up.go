package vpm

import (
	"time"

	"github.com/vellum-lang/vpm/internal/version"
)

// Up implements spec.md §4.4's up(spec, level): re-resolves with the
// given upgrade level as a ceiling on every direct dependency's chosen
// version, by intersecting each direct dep's requirement with a window
// capped at that level above its current manifest version. Indirect deps
// are left to the resolver's ordinary preservation policy.
func Up(e *Environment, opts OpOptions, now time.Time) error {
	return e.withLock(func() error {
		requirements := requirementsFromProject(e.Project)

		for _, id := range e.Project.Deps {
			entry, ok := e.Manifest.Entries[id]
			if !ok || entry.Version == nil {
				continue
			}
			ceiling := ceilingFor(*entry.Version, opts.Level)
			requirements[id] = version.Intersect(requirements[id], ceiling)
		}

		newManifest, err := e.resolveAndInstall(requirements, opts)
		if err != nil {
			return err
		}
		return e.commit(e.Project, newManifest, now)
	})
}

// ceilingFor returns the spec admitting every version from cur up to (but
// not across) the boundary level names: MAJOR allows any later version,
// MINOR caps at the next major release, PATCH caps at the next minor
// release, and FIXED admits only cur itself.
func ceilingFor(cur version.Version, level UpgradeLevel) version.VersionSpec {
	lower := cur
	switch level {
	case LevelFixed:
		return version.VersionSpec{Ranges: []version.VersionRange{{
			Lower: &lower, Upper: &lower, UpperInclusive: true,
		}}}
	case LevelPatch:
		upper := version.Version{Major: cur.Major, Minor: cur.Minor + 1}
		return version.VersionSpec{Ranges: []version.VersionRange{{Lower: &lower, Upper: &upper}}}
	case LevelMinor:
		upper := version.Version{Major: cur.Major + 1}
		return version.VersionSpec{Ranges: []version.VersionRange{{Lower: &lower, Upper: &upper}}}
	default: // LevelMajor
		return version.VersionSpec{Ranges: []version.VersionRange{{Lower: &lower}}}
	}
}
