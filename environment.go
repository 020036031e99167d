package vpm

import (
	"time"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/installer"
	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/registry"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
	"github.com/vellum-lang/vpm/internal/vpmlog"
)

// Environment bundles everything a mutating op needs: the loaded
// (Project, Manifest) pair, the shared depot, a registry-backed resolver
// Source, an Installer, and a logger — the root-package equivalent of
// golang-dep's Project+Ctx pairing in context.go, generalized from a
// single GOPATH-rooted workspace to a depot-rooted one.
type Environment struct {
	Root string

	Project  *manifest.Project
	Manifest *manifest.Manifest

	Depot     *depot.Depot
	Source    *registry.ResolverSource
	Installer *installer.Installer

	Log         *vpmlog.Logger
	HostVersion version.Version
}

// withLock runs fn while holding the environment's exclusive file lock
// (spec.md §4.4's step (a)), unlocking on every return path.
func (e *Environment) withLock(fn func() error) error {
	lock, err := depot.LockEnvironment(manifestPath(e.Root))
	if err != nil {
		return wrapIO(err, "acquiring environment lock")
	}
	defer lock.Unlock()
	return fn()
}

func manifestPath(root string) string {
	return root + "/" + manifest.ManifestName
}

// commit writes proj/man atomically into e.Root (spec.md §4.4 step (c))
// and, on success, appends a usage-log entry keyed by the environment's
// manifest path (step (d)), then updates e's in-memory view.
func (e *Environment) commit(proj *manifest.Project, man *manifest.Manifest, now time.Time) error {
	sw := &manifest.SafeWriter{Project: proj, Manifest: man}
	if err := sw.Write(e.Root); err != nil {
		return wrapIO(err, "committing environment")
	}

	if err := depot.AppendUsage(e.Depot.ManifestUsageLog(), manifestPath(e.Root), now); err != nil {
		return wrapIO(err, "appending manifest usage log")
	}

	e.Project, e.Manifest = proj, man
	return nil
}

// reachableFromRoots implements spec.md §4.4's pruning rule: starting
// from project.deps, weakdeps, extras, and every source named in
// project.sources, keep only manifest entries transitively reachable
// through Entry.Deps.
func reachableFromRoots(proj *manifest.Project, man *manifest.Manifest) map[uuid.UUID]bool {
	seen := make(map[uuid.UUID]bool, len(man.Entries))
	var stack []uuid.UUID

	for _, id := range proj.Deps {
		stack = append(stack, id)
	}
	for _, id := range proj.WeakDeps {
		stack = append(stack, id)
	}
	for _, id := range proj.Extras {
		stack = append(stack, id)
	}
	for id, ent := range man.Entries {
		if _, ok := proj.Sources[ent.Name]; ok {
			stack = append(stack, id)
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		if e, ok := man.Entries[id]; ok {
			for _, depID := range e.Deps {
				if !seen[depID] {
					stack = append(stack, depID)
				}
			}
		}
	}
	return seen
}

// prune drops every manifest entry not reachable from proj's roots,
// matching spec.md §4.4's "after resolve, traverse roots ... and keep
// only reachable manifest entries".
func prune(proj *manifest.Project, man *manifest.Manifest) *manifest.Manifest {
	reachable := reachableFromRoots(proj, man)
	pruned := &manifest.Manifest{Format: man.Format, HostVersion: man.HostVersion, Entries: make(map[uuid.UUID]*manifest.Entry)}
	for id, e := range man.Entries {
		if reachable[id] {
			pruned.Entries[id] = e
		}
	}
	return pruned
}

func requireEntry(man *manifest.Manifest, id uuid.UUID) (*manifest.Entry, error) {
	e, ok := man.Entries[id]
	if !ok {
		return nil, errors.Errorf("vpm: %s is not in the manifest", id)
	}
	return e, nil
}
