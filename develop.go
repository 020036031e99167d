package vpm

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/installer"
	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/uuid"
)

// Develop implements spec.md §4.4's develop(spec): as add, but forces
// path-tracking — the spec must carry a path or a clone URL, and the
// resulting manifest entry pins to that path rather than a
// registry-resolved tree hash.
func Develop(e *Environment, s PackageSpec, opts OpOptions, now time.Time) error {
	if s.Source == nil || (s.Source.Path == "" && s.Source.RepoURL == "") {
		return wrapSpec(errors.New("develop: spec must set a path or repo url"), s.Name)
	}

	return e.withLock(func() error {
		proj := cloneProject(e.Project)
		proj.Deps[s.Name] = s.UUID
		proj.Sources[s.Name] = *s.Source

		path := s.Source.Path
		if path == "" {
			var err error
			path, err = e.cloneForDevelop(s)
			if err != nil {
				return err
			}
		}
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			return wrapIO(errors.Errorf("develop: %s is not a directory", path), s.Name)
		}

		man := cloneManifest(e.Manifest)
		man.Entries[s.UUID] = &manifest.Entry{
			UUID: s.UUID,
			Name: s.Name,
			Path: path,
			Deps: developDeps(e.Manifest, s.UUID),
		}

		return e.commit(proj, prune(proj, man), now)
	})
}

func (e *Environment) cloneForDevelop(s PackageSpec) (string, error) {
	dest := e.Depot.ClonesDir() + "/" + s.UUID.String()
	if err := installer.CloneOrUpdateRepo(s.Source.RepoURL, dest, s.Source.RepoRev); err != nil {
		return "", wrapNetwork(err, "cloning "+s.Name)
	}
	if s.Source.RepoSubdir != "" {
		return dest + "/" + s.Source.RepoSubdir, nil
	}
	return dest, nil
}

// developDeps preserves whatever dep edges an existing manifest entry for
// id already carried (e.g. re-developing a package that was previously
// registry-tracked), or an empty set for a brand-new develop target.
func developDeps(man *manifest.Manifest, id uuid.UUID) map[string]uuid.UUID {
	if e, ok := man.Entries[id]; ok {
		out := make(map[string]uuid.UUID, len(e.Deps))
		for k, v := range e.Deps {
			out[k] = v
		}
		return out
	}
	return make(map[string]uuid.UUID)
}

func cloneManifest(m *manifest.Manifest) *manifest.Manifest {
	cp := &manifest.Manifest{Format: m.Format, HostVersion: m.HostVersion, Entries: make(map[uuid.UUID]*manifest.Entry, len(m.Entries))}
	for id, e := range m.Entries {
		ec := *e
		ec.Deps = make(map[string]uuid.UUID, len(e.Deps))
		for k, v := range e.Deps {
			ec.Deps[k] = v
		}
		cp.Entries[id] = &ec
	}
	return cp
}
