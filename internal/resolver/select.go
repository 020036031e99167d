package resolver

import (
	"sort"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// selectLatest implements spec.md §4.3 step 4 and step 5: for every node
// with a non-empty candidate set, choose the latest version (release
// versions beat prereleases of equal numeric prefix); otherwise fail with
// Unsatisfiable naming the first node, in UUID order, whose candidate set
// is empty.
func selectLatest(g *graph, in Input) (map[uuid.UUID]version.Version, error) {
	out := make(map[uuid.UUID]version.Version, len(g.nodes))

	for _, id := range sortedNodeIDs(g) {
		n := g.nodes[id]

		if n.fixed != nil {
			out[id] = n.fixed.Version
			continue
		}
		if id == in.AnchorUUID {
			out[id] = in.HostVersion
			continue
		}

		chosen, ok := pickLatest(n.candidates)
		if !ok {
			return nil, &Unsatisfiable{
				UUID:      id,
				Requested: in.Requirements[id],
				Available: n.allVersions,
			}
		}
		out[id] = chosen
	}

	return out, nil
}

// pickLatest returns the newest version in candidates by spec.md §4.3 step
// 4's ordering: Version.Compare already encodes "release beats prerelease
// of equal numeric prefix".
func pickLatest(candidates map[version.Version]bool) (version.Version, bool) {
	var best version.Version
	have := false
	for v := range candidates {
		if !have || v.Compare(best) > 0 {
			best = v
			have = true
		}
	}
	return best, have
}

func sortedNodeIDs(g *graph) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// firstViolatedEdge implements spec.md §4.3 step 5's completeness check
// over a complete assignment: propagate's second bullet (anyMatches) only
// ever confirms that *some* version of a dependency satisfies an edge, not
// that the dependency's actually-chosen version does. Two nodes can each
// keep a candidate that looks fine in isolation while selectLatest's
// independent per-node pick still lands on a combination that violates one
// of the edges between them — the non-monotonic-constraint case. This
// walks every still-live edge in the final assignment, in a stable UUID
// order, and returns the first one whose parent's chosen version requires
// a dependency version the dependency's own chosen version doesn't
// satisfy.
func firstViolatedEdge(g *graph, assignment map[uuid.UUID]version.Version) (parent, dep uuid.UUID, ok bool) {
	for _, id := range sortedNodeIDs(g) {
		n := g.nodes[id]
		for depID, spec := range n.deps[assignment[id]] {
			if !spec.Contains(assignment[depID]) {
				return id, depID, true
			}
		}
	}
	return uuid.UUID{}, uuid.UUID{}, false
}
