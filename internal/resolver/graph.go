package resolver

import (
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// node is a single UUID's working state through the solve: its full set of
// known non-yanked versions, each version's dep edges, and the (shrinking)
// candidate set maintained by propagate().
type node struct {
	id uuid.UUID

	// allVersions is the complete, policy- and propagation-untouched list of
	// versions known for this UUID (spec.md §4.3 step 1's "all_versions").
	allVersions []version.Version

	// deps[v] is that version's dep_uuid -> VersionSpec edges (step 1's
	// "all_compat[v]").
	deps map[version.Version]map[uuid.UUID]version.VersionSpec

	// fixed is non-nil when this UUID is a path/repo-tracked or pinned
	// package: its version is not subject to selection.
	fixed *FixedEntry

	// candidates is the live, shrinking set considered by propagate() and
	// filterByPolicy(); nil means "not yet restricted" (equivalent to
	// allVersions).
	candidates map[version.Version]bool
}

// graph is the resolver's whole working state: every UUID discovered during
// expansion, keyed by UUID.
type graph struct {
	nodes map[uuid.UUID]*node
}

// expandGraph performs spec.md §4.3 step 1: starting from the requirement
// and fixed UUIDs, repeatedly discover new UUIDs via each known version's
// deps row, until no new UUID is found. The anchor UUID is special-cased to
// the singleton set {host_version}.
func expandGraph(in Input) (*graph, error) {
	g := &graph{nodes: make(map[uuid.UUID]*node)}

	// Seed the anchor with its singleton version set; it never participates
	// in lookups against in.Source.
	anchor := &node{
		id:          in.AnchorUUID,
		allVersions: []version.Version{in.HostVersion},
		deps:        map[version.Version]map[uuid.UUID]version.VersionSpec{in.HostVersion: {}},
	}
	g.nodes[in.AnchorUUID] = anchor

	for id, fe := range in.Fixed {
		fe := fe
		g.nodes[id] = &node{
			id:          id,
			allVersions: []version.Version{fe.Version},
			deps:        map[version.Version]map[uuid.UUID]version.VersionSpec{fe.Version: fe.Deps},
			fixed:       &fe,
		}
	}

	frontier := make([]uuid.UUID, 0, len(in.Requirements)+len(in.Fixed))
	for id := range in.Requirements {
		frontier = append(frontier, id)
	}
	for id := range in.Fixed {
		frontier = append(frontier, id)
	}

	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]

		if id == in.AnchorUUID {
			continue
		}
		// Fixed entries already have their (single) version's deps loaded;
		// everything else gets fetched from the source on first sight.
		if _, ok := g.nodes[id]; !ok {
			n, err := loadNode(in.Source, id)
			if err != nil {
				return nil, errors.Wrapf(err, "expanding %s", id)
			}
			g.nodes[id] = n
		}

		n := g.nodes[id]
		for _, edges := range n.deps {
			for dep := range edges {
				if _, seen := g.nodes[dep]; !seen {
					frontier = append(frontier, dep)
				}
			}
		}
	}

	return g, nil
}

func loadNode(src Source, id uuid.UUID) (*node, error) {
	versions, err := src.Versions(id)
	if err != nil {
		return nil, &UnknownPackage{UUID: id}
	}

	n := &node{
		id:   id,
		deps: make(map[version.Version]map[uuid.UUID]version.VersionSpec, len(versions)),
	}
	for _, v := range versions {
		if src.Yanked(id, v) {
			continue
		}
		edges, err := src.Deps(id, v)
		if err != nil {
			return nil, errors.Wrapf(err, "deps of %s@%s", id, v)
		}
		n.allVersions = append(n.allVersions, v)
		n.deps[v] = edges
	}
	return n, nil
}
