// Package resolver implements spec.md §4.3's dependency resolution: graph
// expansion from a set of requirements and fixed entries, preservation-policy
// filtering, constraint propagation to a fixed point, and latest-wins
// selection.
//
// The source-manager bridge standing between the solver and wherever
// package data actually lives is carried over from golang-dep's
// solver.go, but the algorithm itself is not dep's CDCL backtracking SAT
// solver: per spec.md §4.3 this is a simpler "shrink every candidate set to a
// fixed point, then pick latest" process with no backtracking, because
// versions (not import packages) are the unit of selection.
package resolver

import (
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// Source is the bridge between the resolver and wherever package data
// actually lives (a registry.Layered, a path-tracked package, a test
// fixture). It mirrors solver.go's sourceBridge: the solver only ever asks
// for a UUID's known versions and a given version's deps, never touches
// TOML or the filesystem directly.
type Source interface {
	// Versions returns every known version of id, newest-insensitive order.
	Versions(id uuid.UUID) ([]version.Version, error)
	// Yanked reports whether id@v is yanked.
	Yanked(id uuid.UUID, v version.Version) bool
	// Deps returns id@v's dep_uuid -> VersionSpec edges (spec.md §4.3 step 1
	// "all_compat[v]"), always including the anchor UUID.
	Deps(id uuid.UUID, v version.Version) (map[uuid.UUID]version.VersionSpec, error)
}

// FixedEntry is a path- or repo-tracked or pinned package: its version is
// not subject to selection, but its declared deps still participate in
// constraint propagation (spec.md §4.3: "fixed entries (UUID -> {version,
// deps_with_compat})").
type FixedEntry struct {
	Version version.Version
	Deps    map[uuid.UUID]version.VersionSpec
}

// Policy is a preservation policy (spec.md §4.3 step 2).
type Policy int

const (
	PolicyNone Policy = iota
	PolicyTiered
	PolicyAll
	PolicyDirect
	PolicySemver
	PolicyTieredInstalled
	PolicyAllInstalled
)

// Input bundles a resolve request's parameters.
type Input struct {
	Requirements map[uuid.UUID]version.VersionSpec
	Fixed        map[uuid.UUID]FixedEntry
	Direct       map[uuid.UUID]bool // UUIDs named directly by the project, for DIRECT/TIERED
	Previous     map[uuid.UUID]version.Version
	Installed    map[uuid.UUID]map[version.Version]bool // *_INSTALLED: already-downloaded tree hashes, keyed by version
	Policy       Policy
	HostVersion  version.Version
	AnchorUUID   uuid.UUID
	Source       Source
}

// Unsatisfiable is spec.md §4.3 step 5's failure mode: no assignment exists
// for uuid under the given constraints.
type Unsatisfiable struct {
	UUID      uuid.UUID
	Requested version.VersionSpec
	Available []version.Version
}

func (e *Unsatisfiable) Error() string {
	return "resolver: no version of " + e.UUID.String() + " satisfies " + e.Requested.String()
}

// Cycle is reported only when a fixed package path-tracks another with
// contradictory deps; ordinary dependency cycles are legal (selection is by
// version, not build order).
type Cycle struct {
	Path []uuid.UUID
}

func (e *Cycle) Error() string {
	s := "resolver: cycle among fixed packages:"
	for i, id := range e.Path {
		if i > 0 {
			s += " ->"
		}
		s += " " + id.String()
	}
	return s
}

// UnknownPackage is reported when a name appears in a compat/deps table but
// no registry nor path carries its UUID.
type UnknownPackage struct {
	UUID uuid.UUID
}

func (e *UnknownPackage) Error() string {
	return "resolver: unknown package " + e.UUID.String()
}

// Resolve runs spec.md §4.3's algorithm end to end, returning a complete
// UUID -> Version assignment for every reachable non-fixed package.
func Resolve(in Input) (map[uuid.UUID]version.Version, error) {
	if in.Policy == PolicyTiered || in.Policy == PolicyTieredInstalled {
		return resolveTiered(in)
	}
	return resolveOnce(in)
}

// resolveTiered implements spec.md §4.3 step 2's TIERED driver: retry
// ALL -> DIRECT -> SEMVER -> NONE on Unsatisfiable. Under
// TIERED_INSTALLED only the ALL tier runs with the installed restriction
// (as ALL_INSTALLED); DIRECT, SEMVER and NONE run unrestricted.
func resolveTiered(in Input) (map[uuid.UUID]version.Version, error) {
	installed := in.Policy == PolicyTieredInstalled
	tiers := []Policy{PolicyAll, PolicyDirect, PolicySemver, PolicyNone}

	var lastErr error
	for _, p := range tiers {
		trial := in
		trial.Policy = p
		if installed && p != PolicyNone {
			trial.Policy = policyWithInstalled(p)
		}
		assignment, err := resolveOnce(trial)
		if err == nil {
			return assignment, nil
		}
		if _, ok := errors.Cause(err).(*Unsatisfiable); !ok {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func policyWithInstalled(p Policy) Policy {
	switch p {
	case PolicyAll:
		return PolicyAllInstalled
	default:
		return p
	}
}

// resolveOnce runs a single, non-retrying pass of graph expansion, policy
// filtering, constraint propagation, and selection.
//
// Propagation alone shrinks every node's candidates to a fixed point, but
// its second bullet only tests that *some* version of a dependency
// satisfies an edge (anyMatches), never that the dependency's eventual,
// independently-chosen version does. With non-monotonic constraints two
// nodes can each survive propagation while selectLatest's per-node latest
// pick still violates the edge between them (spec.md §4.3 step 5). So
// selection runs in a validate-and-repair loop: pick latest, check every
// edge in the resulting assignment, and if one is violated, drop the
// offending side's candidate and re-propagate before trying again. Each
// repair strictly shrinks some node's candidate set, over a finite
// universe of (UUID, version) pairs, so the loop always terminates —
// either at a fully edge-consistent assignment, or at Unsatisfiable once
// a node's candidates run out.
func resolveOnce(in Input) (map[uuid.UUID]version.Version, error) {
	g, err := expandGraph(in)
	if err != nil {
		return nil, err
	}

	if err := filterByPolicy(g, in); err != nil {
		return nil, err
	}

	if err := propagate(g, in); err != nil {
		return nil, err
	}

	for {
		assignment, err := selectLatest(g, in)
		if err != nil {
			return nil, err
		}

		parent, dep, violated := firstViolatedEdge(g, assignment)
		if !violated {
			return assignment, nil
		}

		// Prefer narrowing the dependent: the parent's edge came from its
		// own still-current pick, so the dependency's conflicting choice is
		// the one to rule out. Fixed/anchor nodes are selected straight
		// from n.fixed/in.HostVersion rather than from candidates, so
		// dropping a candidate there would never change the next pick;
		// narrow the parent's choice instead in that case. In practice
		// propagate's existing shrinkTo pass already keeps a fixed/anchor
		// dependency's single version consistent with every surviving
		// parent, so this branch is a defensive fallback, not the expected
		// path.
		depNode := g.nodes[dep]
		parentNode := g.nodes[parent]
		depMovable := depNode.fixed == nil && dep != in.AnchorUUID
		parentMovable := parentNode.fixed == nil && parent != in.AnchorUUID

		switch {
		case depMovable:
			delete(depNode.candidates, assignment[dep])
		case parentMovable:
			delete(parentNode.candidates, assignment[parent])
		default:
			// Both ends are fixed/anchor, so neither side's pick can ever
			// change: two immutable entries require mutually-incompatible
			// versions of each other.
			return nil, &Cycle{Path: []uuid.UUID{parent, dep}}
		}

		if err := propagate(g, in); err != nil {
			return nil, err
		}
	}
}
