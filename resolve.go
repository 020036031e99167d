package vpm

import (
	"github.com/vellum-lang/vpm/internal/installer"
	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/registry"
	"github.com/vellum-lang/vpm/internal/resolver"
	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// requirementsFromProject builds the resolver's top-level Requirements map
// from project.deps joined against project.compat by name (spec.md §3:
// a dep with no compat row is unbounded).
func requirementsFromProject(proj *manifest.Project) map[uuid.UUID]version.VersionSpec {
	reqs := make(map[uuid.UUID]version.VersionSpec, len(proj.Deps))
	for name, id := range proj.Deps {
		if spec, ok := proj.Compat[name]; ok {
			reqs[id] = spec
		} else {
			reqs[id] = version.Any()
		}
	}
	return reqs
}

// buildResolverInput translates an Environment's current (Project,
// Manifest) plus a set of requirement overrides into a resolver.Input,
// carrying forward pinned/path/repo entries as resolver.FixedEntry so the
// resolver's constraint propagation still sees their declared deps
// (spec.md §4.3: "fixed entries ... still participate in constraint
// propagation").
func (e *Environment) buildResolverInput(requirements map[uuid.UUID]version.VersionSpec, opts OpOptions) (resolver.Input, error) {
	in := resolver.Input{
		Requirements: requirements,
		Fixed:        make(map[uuid.UUID]resolver.FixedEntry),
		Direct:       make(map[uuid.UUID]bool),
		Previous:     make(map[uuid.UUID]version.Version),
		Installed:    make(map[uuid.UUID]map[version.Version]bool),
		Policy:       opts.Preserve,
		HostVersion:  e.HostVersion,
		AnchorUUID:   registry.AnchorUUID,
		Source:       e.Source,
	}

	for name := range e.Project.Deps {
		in.Direct[e.Project.Deps[name]] = true
	}

	for id, entry := range e.Manifest.Entries {
		if entry.Version != nil {
			in.Previous[id] = *entry.Version
		}
		if entry.Pinned || entry.Path != "" || entry.Repo != nil {
			deps := make(map[uuid.UUID]version.VersionSpec, len(entry.Deps))
			for _, depID := range entry.Deps {
				deps[depID] = version.Any()
			}
			fv := version.Version{}
			if entry.Version != nil {
				fv = *entry.Version
			}
			in.Fixed[id] = resolver.FixedEntry{Version: fv, Deps: deps}
		}
	}

	return in, nil
}

// entriesFromAssignment turns a resolver assignment (uuid -> version) into
// manifest entries, consulting e.Source for each package's name, dep
// edges, repo, and tree hash. Entries already fixed in the input manifest
// (pinned, path-, or repo-tracked) are carried forward unchanged rather
// than rebuilt from the registry, since their source of truth isn't the
// registry at all.
func (e *Environment) entriesFromAssignment(assignment map[uuid.UUID]version.Version) (map[uuid.UUID]*manifest.Entry, error) {
	out := make(map[uuid.UUID]*manifest.Entry, len(assignment))

	for id, v := range assignment {
		if prev, ok := e.Manifest.Entries[id]; ok && (prev.Pinned || prev.Path != "" || prev.Repo != nil) {
			out[id] = prev
			continue
		}

		name := e.Source.NameOf(id)
		if name == "" {
			return nil, &ResolverError{cause: &resolver.UnknownPackage{UUID: id}}
		}

		depNames, err := e.Source.DepNamesAt(id, v)
		if err != nil {
			return nil, wrapRegistry(err, "resolving dep names for "+name)
		}

		hashStr, err := e.Source.TreeHashOf(id, v)
		if err != nil {
			return nil, wrapRegistry(err, "resolving tree hash for "+name)
		}
		th, err := treehash.Parse(hashStr)
		if err != nil {
			return nil, wrapHash(err, "parsing tree hash for "+name)
		}

		vv := v
		out[id] = &manifest.Entry{
			UUID:     id,
			Name:     name,
			Version:  &vv,
			TreeHash: &th,
			Deps:     depNames,
		}
	}
	return out, nil
}

// resolveAndInstall runs the resolver over requirements, turns the
// assignment into manifest entries, installs every newly-needed one, and
// returns the pruned, ready-to-commit manifest. Shared by add, develop,
// up, and free, which differ only in how they build requirements/opts.
func (e *Environment) resolveAndInstall(requirements map[uuid.UUID]version.VersionSpec, opts OpOptions) (*manifest.Manifest, error) {
	in, err := e.buildResolverInput(requirements, opts)
	if err != nil {
		return nil, err
	}

	assignment, err := resolver.Resolve(in)
	if err != nil {
		return nil, wrapResolver(err, "resolving dependencies")
	}

	entries, err := e.entriesFromAssignment(assignment)
	if err != nil {
		return nil, err
	}

	newManifest := &manifest.Manifest{
		Format:      manifest.CurrentFormat,
		HostVersion: in.HostVersion,
		Entries:     entries,
	}

	toInstall := make(map[uuid.UUID]*manifest.Entry)
	for id, entry := range entries {
		prev, existed := e.Manifest.Entries[id]
		if entry.Path != "" {
			continue // develop'd: never fetched
		}
		if existed && prev.TreeHash != nil && entry.TreeHash != nil && *prev.TreeHash == *entry.TreeHash {
			continue // already installed at this content address
		}
		toInstall[id] = entry
	}
	if err := e.installMissing(toInstall); err != nil {
		return nil, err
	}

	return prune(e.Project, newManifest), nil
}

// installMissing stages every non-fixed entry's content into the depot
// via a bounded-concurrency queue (installer.RunQueue), skipping entries
// already tracked by path (develop'd packages are never fetched).
func (e *Environment) installMissing(entries map[uuid.UUID]*manifest.Entry) error {
	var tasks []installer.Task
	for _, entry := range entries {
		entry := entry
		tasks = append(tasks, installer.Task{
			Entry: entry,
			Run: func(*manifest.Entry) error {
				_, err := e.Installer.Install(entry)
				return err
			},
		})
	}

	results := installer.RunQueue(tasks, 8)
	if failed := installer.FailedResults(results); len(failed) > 0 {
		return wrapNetwork(failed[0].Err, "installing "+failed[0].Entry.Name)
	}
	return nil
}
