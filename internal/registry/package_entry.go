package registry

import (
	"sort"

	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// VersionInfo is a single entry of a package's Versions.toml.
type VersionInfo struct {
	TreeHash treehash.Hash
	Yanked   bool
}

// PackageEntry is the fully-expanded, per-UUID view of a registry package
// (spec.md §3 "Package entry (registry)").
type PackageEntry struct {
	UUID   uuid.UUID
	Name   string
	Repo   string
	Subdir string

	Versions map[version.Version]VersionInfo

	CompatByName     map[version.Version]map[string]version.VersionSpec
	DepsByName       map[version.Version]map[string]uuid.UUID
	WeakCompatByName map[version.Version]map[string]version.VersionSpec
	WeakDepsByName   map[version.Version]map[string]uuid.UUID
}

// SortedVersions returns the package's versions in ascending order.
func (p *PackageEntry) SortedVersions() []version.Version {
	out := make([]version.Version, 0, len(p.Versions))
	for v := range p.Versions {
		out = append(out, v)
	}
	sortVersions(out)
	return out
}

// ResolvedDeps returns the dep_uuid -> VersionSpec edges for version v, per
// spec.md §4.3 step 1 ("all_compat[v] = dep_uuid -> VersionSpec"). Every dep
// name present in DepsByName[v] is joined against CompatByName[v],
// defaulting to an unbounded spec when the name carries no compat row
// (spec.md §3 invariant). The anchor pseudo-package is always present,
// defaulting to unbounded if the package's own Deps.toml didn't name it
// explicitly (spec.md §3: "deps[v] always implicitly contains the ... anchor
// UUID").
func (p *PackageEntry) ResolvedDeps(v version.Version) map[uuid.UUID]version.VersionSpec {
	out := make(map[uuid.UUID]version.VersionSpec)

	names := p.DepsByName[v]
	compats := p.CompatByName[v]
	haveAnchor := false
	for name, depUUID := range names {
		spec, ok := compats[name]
		if !ok {
			spec = version.Any()
		}
		out[depUUID] = spec
		if depUUID == AnchorUUID {
			haveAnchor = true
		}
	}
	if !haveAnchor {
		out[AnchorUUID] = version.Any()
	}
	return out
}

// ResolvedWeakDeps is ResolvedDeps for the optional-extension edge tables
// (weak_deps/weak_compat, spec.md §3), which never implicitly carry the
// anchor.
func (p *PackageEntry) ResolvedWeakDeps(v version.Version) map[uuid.UUID]version.VersionSpec {
	out := make(map[uuid.UUID]version.VersionSpec)
	names := p.WeakDepsByName[v]
	compats := p.WeakCompatByName[v]
	for name, depUUID := range names {
		spec, ok := compats[name]
		if !ok {
			spec = version.Any()
		}
		out[depUUID] = spec
	}
	return out
}

func sortVersions(vs []version.Version) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
