package registry

import (
	"github.com/vellum-lang/vpm/internal/resolver"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// ResolverSource adapts a Layered registry set to internal/resolver.Source,
// the narrow interface the resolver actually consumes — it never sees TOML
// or a *Layered directly, mirroring the gps solver's sourceBridge
// indirection noted in resolver.go's package doc.
type ResolverSource struct {
	Layered *Layered
}

var _ resolver.Source = (*ResolverSource)(nil)

// Versions returns id's known versions in ascending order, including
// yanked ones — the resolver itself excludes yanked versions via Yanked,
// per spec.md §4.3 step 1 ("Yanked versions are excluded unless explicitly
// pinned").
func (s *ResolverSource) Versions(id uuid.UUID) ([]version.Version, error) {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return nil, err
	}
	return pkg.SortedVersions(), nil
}

// Yanked reports whether id@v is yanked. A lookup failure is treated as
// "not yanked" here; Versions/Deps will already have surfaced the error to
// the resolver for any UUID that can't be found at all.
func (s *ResolverSource) Yanked(id uuid.UUID, v version.Version) bool {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return false
	}
	info, ok := pkg.Versions[v]
	return ok && info.Yanked
}

// Deps returns id@v's dep_uuid -> VersionSpec edges, always including the
// anchor UUID per PackageEntry.ResolvedDeps.
func (s *ResolverSource) Deps(id uuid.UUID, v version.Version) (map[uuid.UUID]version.VersionSpec, error) {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return nil, err
	}
	return pkg.ResolvedDeps(v), nil
}

// NameOf looks up id's registered name, for translating a resolved
// uuid.Version assignment back into name-keyed manifest.Entry.Deps rows.
// Returns "" if id is unknown to every layered registry.
func (s *ResolverSource) NameOf(id uuid.UUID) string {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return ""
	}
	return pkg.Name
}

// DepNamesAt returns the name -> uuid edges for id@v exactly as the
// registry declares them (spec.md §3's DepsByName), for populating a
// manifest.Entry.Deps row after selection — ResolvedDeps loses the names,
// collapsing to uuid -> VersionSpec, which the resolver needs but the
// manifest format doesn't store. Unlike ResolvedDeps, this deliberately
// omits the implicit anchor edge: the anchor is a pseudo-package the
// resolver uses to bind the host version constraint, never a real entry
// in the manifest, so a manifest.Entry.Deps row naming it would fail
// manifest.checkInvariants' "every named dep is in the manifest" check.
func (s *ResolverSource) DepNamesAt(id uuid.UUID, v version.Version) (map[string]uuid.UUID, error) {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]uuid.UUID, len(pkg.DepsByName[v]))
	for name, depID := range pkg.DepsByName[v] {
		if depID == AnchorUUID {
			continue
		}
		out[name] = depID
	}
	return out, nil
}

// RepoOf returns id's registered repo URL and subdirectory, for
// constructing a RepoTrack when the resolver settles on a non-path,
// non-pinned entry that the installer must clone.
func (s *ResolverSource) RepoOf(id uuid.UUID) (repo, subdir string, err error) {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return "", "", err
	}
	return pkg.Repo, pkg.Subdir, nil
}

// TreeHashOf returns id@v's content-addressed tree hash as recorded in the
// registry's Versions.toml.
func (s *ResolverSource) TreeHashOf(id uuid.UUID, v version.Version) (string, error) {
	pkg, err := s.Layered.Package(id)
	if err != nil {
		return "", err
	}
	info, ok := pkg.Versions[v]
	if !ok {
		return "", &unknownVersionErr{UUID: id, Version: v}
	}
	return info.TreeHash.String(), nil
}

type unknownVersionErr struct {
	UUID    uuid.UUID
	Version version.Version
}

func (e *unknownVersionErr) Error() string {
	return "registry: " + e.UUID.String() + "@" + e.Version.String() + " not found"
}
