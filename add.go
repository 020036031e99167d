package vpm

import (
	"time"

	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// PackageSpec names one dependency to add: its registered name, UUID, an
// optional compat constraint, and an optional SourceSpec override (a local
// path or repo URL, for add()'s "optional sources" clause — spec.md §4.4).
type PackageSpec struct {
	Name   string
	UUID   uuid.UUID
	Compat *string // raw VersionSpec string; nil means unconstrained
	Source *manifest.SourceSpec
}

// Add implements spec.md §4.4's add(specs): merge specs into
// project.deps (and project.sources, when a spec carries one), resolve,
// and install anything newly required.
func Add(e *Environment, specs []PackageSpec, opts OpOptions, now time.Time) error {
	return e.withLock(func() error {
		proj := cloneProject(e.Project)

		for _, s := range specs {
			proj.Deps[s.Name] = s.UUID
			if s.Compat != nil {
				spec, err := parseCompat(*s.Compat)
				if err != nil {
					return wrapSpec(err, "parsing compat for "+s.Name)
				}
				proj.Compat[s.Name] = spec
			}
			if s.Source != nil {
				proj.Sources[s.Name] = *s.Source
			}
		}

		requirements := requirementsFromProject(proj)
		savedProj := e.Project
		e.Project = proj
		newManifest, err := e.resolveAndInstall(requirements, opts)
		e.Project = savedProj
		if err != nil {
			return err
		}

		return e.commit(proj, newManifest, now)
	})
}

// cloneProject returns a shallow-mutable copy of p so a failed op never
// leaves the Environment's in-memory Project half-mutated.
func cloneProject(p *manifest.Project) *manifest.Project {
	cp := *p
	cp.Deps = cloneUUIDMap(p.Deps)
	cp.WeakDeps = cloneUUIDMap(p.WeakDeps)
	cp.Extras = cloneUUIDMap(p.Extras)

	cp.Compat = make(map[string]version.VersionSpec, len(p.Compat))
	for k, v := range p.Compat {
		cp.Compat[k] = v
	}

	cp.Sources = make(map[string]manifest.SourceSpec, len(p.Sources))
	for k, v := range p.Sources {
		cp.Sources[k] = v
	}

	cp.Targets = make(map[string][]string, len(p.Targets))
	for k, v := range p.Targets {
		cp.Targets[k] = append([]string(nil), v...)
	}

	return &cp
}

func cloneUUIDMap(m map[string]uuid.UUID) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func parseCompat(s string) (version.VersionSpec, error) {
	return version.ParseSpec(s)
}
