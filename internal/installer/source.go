// Package installer implements spec.md §4.5's installation pipeline:
// deciding where a manifest entry's content comes from, downloading and
// verifying it, unpacking it into the depot, and overlaying
// platform-matched build artifacts. Grounded on golang-dep's source.go
// decision tree (path > repo > registry-hosted tarball) and vcs_repo.go's
// VCS wrappers, retargeted from Go import-path sources to this system's
// UUID/tree-hash-addressed packages.
package installer

import (
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/treehash"
)

// Kind is the closed set of ways a manifest entry's content can be
// located, mirroring the decision tree in golang-dep's source.go
// (maybeGitSource/maybeLocalSource/... try() chain), but expressed as a
// sum type instead of interface polymorphism since there is a fixed,
// small set of variants and the caller (Resolve) always knows which one
// applies from the entry's own fields.
type Kind int

const (
	// KindPath is a local, uninstalled directory (spec.md §3 "path"):
	// develop()'d dependencies live here and are never downloaded.
	KindPath Kind = iota
	// KindRepo is a VCS clone tracked at a revision (spec.md §3 "repo").
	KindRepo
	// KindTreeHash is a registry-hosted, content-addressed tarball.
	KindTreeHash
)

// Ref identifies where to fetch one manifest entry's content from,
// derived from its Entry by source-decision precedence: path, then
// repo, then tree hash (spec.md §4.5 "decide source").
type Ref struct {
	Kind     Kind
	Path     string
	Repo     *manifest.RepoTrack
	TreeHash *treehash.Hash

	// RegistryURL/RegistrySubdir locate the tarball for KindTreeHash refs;
	// populated by the caller from the registry entry, since Manifest
	// entries alone don't carry a download URL.
	RegistryURL    string
	RegistrySubdir string
}

// Resolve applies spec.md §4.5's source-decision precedence to a single
// manifest entry: an explicit Path wins, then Repo tracking, then plain
// tree-hash (registry tarball) tracking. Pinned entries keep whichever of
// these was already recorded, same as any other entry — pinning freezes
// the *version*, not the source kind.
func Resolve(e *manifest.Entry) (Ref, error) {
	switch {
	case e.Path != "":
		return Ref{Kind: KindPath, Path: e.Path}, nil
	case e.Repo != nil:
		return Ref{Kind: KindRepo, Repo: e.Repo}, nil
	case e.TreeHash != nil:
		return Ref{Kind: KindTreeHash, TreeHash: e.TreeHash}, nil
	default:
		return Ref{}, errors.Errorf("installer: entry %s (%s) has no path, repo, or tree_hash to install from", e.Name, e.UUID)
	}
}
