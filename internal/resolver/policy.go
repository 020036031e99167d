package resolver

import "github.com/vellum-lang/vpm/internal/version"

// filterByPolicy implements spec.md §4.3 step 2: restrict each UUID's
// candidate set per the requested preservation policy, before constraint
// propagation narrows things further. Fixed and anchor nodes are never
// restricted here — their single allowed version already is the candidate
// set.
func filterByPolicy(g *graph, in Input) error {
	for id, n := range g.nodes {
		if n.fixed != nil || id == in.AnchorUUID {
			n.candidates = versionSet(n.allVersions)
			continue
		}

		prev, hadPrev := in.Previous[id]
		isDirect := in.Direct[id]

		restrict := func(keep func(version.Version) bool) {
			n.candidates = make(map[version.Version]bool)
			for _, v := range n.allVersions {
				if keep(v) {
					n.candidates[v] = true
				}
			}
		}

		switch in.Policy {
		case PolicyAll, PolicyAllInstalled:
			if hadPrev {
				restrict(func(v version.Version) bool { return v.Equal(prev) })
			} else {
				n.candidates = versionSet(n.allVersions)
			}
		case PolicyDirect:
			if hadPrev && !isDirect {
				restrict(func(v version.Version) bool { return v.Equal(prev) })
			} else {
				n.candidates = versionSet(n.allVersions)
			}
		case PolicySemver:
			if hadPrev {
				restrict(func(v version.Version) bool { return v.Major == prev.Major })
			} else {
				n.candidates = versionSet(n.allVersions)
			}
		case PolicyNone:
			n.candidates = versionSet(n.allVersions)
		default:
			n.candidates = versionSet(n.allVersions)
		}

		if in.Policy == PolicyAllInstalled {
			installed := in.Installed[id]
			for v := range n.candidates {
				if !installed[v] {
					delete(n.candidates, v)
				}
			}
		}
	}
	return nil
}

func versionSet(vs []version.Version) map[version.Version]bool {
	out := make(map[version.Version]bool, len(vs))
	for _, v := range vs {
		out[v] = true
	}
	return out
}
