package resolver

import (
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// unionBuilder accumulates a union of VersionSpecs incrementally. Its zero
// value is the empty spec, the identity element for Union.
type unionBuilder struct {
	s version.VersionSpec
}

func (u *unionBuilder) add(s version.VersionSpec) {
	u.s = version.Union(u.s, s)
}

func (u *unionBuilder) spec() version.VersionSpec { return u.s }

// shrinkTo intersects n's candidate set against spec, reporting whether it
// actually shrank.
func shrinkTo(n *node, spec version.VersionSpec) bool {
	shrunk := false
	for v := range n.candidates {
		if !spec.Contains(v) {
			delete(n.candidates, v)
			shrunk = true
		}
	}
	return shrunk
}

// propagate implements spec.md §4.3 step 3: repeatedly shrink every node's
// candidate set so that chosen(a) = v implies chosen(b) is in
// compat_a_v[b] for every edge (a, v, b), until a fixed point is reached.
func propagate(g *graph, in Input) error {
	// Seed requirement constraints directly (they are not edges from any
	// parent version, just top-level asks).
	for id, spec := range in.Requirements {
		n, ok := g.nodes[id]
		if !ok {
			return &UnknownPackage{UUID: id}
		}
		shrinkTo(n, spec)
	}

	for {
		shrunk := false

		for _, n := range g.nodes {
			// incoming[dep] accumulates, across every still-possible
			// (parent, version) pair, the union of compat specs that parent
			// version allows for dep.
			incoming := make(map[uuid.UUID]*unionBuilder)

			for v := range n.candidates {
				for dep, spec := range n.deps[v] {
					ub, ok := incoming[dep]
					if !ok {
						ub = &unionBuilder{}
						incoming[dep] = ub
					}
					ub.add(spec)
				}
			}

			for dep, ub := range incoming {
				depNode, ok := g.nodes[dep]
				if !ok {
					return &UnknownPackage{UUID: dep}
				}
				if shrinkTo(depNode, ub.spec()) {
					shrunk = true
				}
			}
		}

		// Drop versions whose own deps require a UUID with an empty
		// candidate set (step 3's second bullet).
		for _, n := range g.nodes {
			for v := range n.candidates {
				for dep, spec := range n.deps[v] {
					depNode, ok := g.nodes[dep]
					if !ok || !anyMatches(depNode.candidates, spec) {
						delete(n.candidates, v)
						shrunk = true
						break
					}
				}
			}
		}

		if !shrunk {
			break
		}
	}

	return nil
}

func anyMatches(candidates map[version.Version]bool, spec version.VersionSpec) bool {
	for v := range candidates {
		if spec.Contains(v) {
			return true
		}
	}
	return false
}
