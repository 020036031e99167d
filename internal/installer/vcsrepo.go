package installer

import (
	"os"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// repoKindFromURL guesses the VCS kind from a repo URL the simple way
// golang-dep's maybeSources chain tries each VCS in turn: a URL ending in
// "+hg", "+bzr" or "+svn" picks that kind explicitly; every other URL
// defaults to git, the overwhelmingly common case in this ecosystem.
func repoKindFromURL(url string) vcs.Type {
	switch {
	case hasSuffixAny(url, "+hg"):
		return vcs.Hg
	case hasSuffixAny(url, "+bzr"):
		return vcs.Bzr
	case hasSuffixAny(url, "+svn"):
		return vcs.Svn
	default:
		return vcs.Git
	}
}

func hasSuffixAny(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// newVCSRepo builds the vcs.Repo for kind rooted at local, adapted from
// golang-dep's vcs_repo.go getVCSRepo switch — minus its ctxRepo
// context-cancellable command wrapping, since Masterminds/vcs's
// synchronous Get/Update/UpdateVersion calls are sufficient for this
// system's single-threaded-per-clone install step.
func newVCSRepo(kind vcs.Type, remote, local string) (vcs.Repo, error) {
	switch kind {
	case vcs.Git:
		return vcs.NewGitRepo(remote, local)
	case vcs.Hg:
		return vcs.NewHgRepo(remote, local)
	case vcs.Bzr:
		return vcs.NewBzrRepo(remote, local)
	case vcs.Svn:
		return vcs.NewSvnRepo(remote, local)
	default:
		return nil, errors.Errorf("installer: unsupported vcs kind %v", kind)
	}
}

// CloneOrUpdateRepo ensures a clone of remote exists at local, checked
// out at rev: if the clone already exists it is fetched and updated in
// place; otherwise (CheckLocal reports no checkout) it is cloned fresh. If
// building the repo handle for local fails, local is removed and the handle
// is built once more, mirroring golang-dep's newCtxRepo recovery path.
func CloneOrUpdateRepo(remote, local, rev string) error {
	kind := repoKindFromURL(remote)

	repo, err := newVCSRepo(kind, remote, local)
	if err != nil {
		os.RemoveAll(local)
		repo, err = newVCSRepo(kind, remote, local)
		if err != nil {
			return errors.Wrapf(err, "installer: initializing repo for %s", remote)
		}
	}

	if repo.CheckLocal() {
		if err := repo.Update(); err != nil {
			return errors.Wrapf(err, "installer: updating clone of %s", remote)
		}
	} else {
		if err := repo.Get(); err != nil {
			return errors.Wrapf(err, "installer: cloning %s", remote)
		}
	}

	if rev != "" {
		if err := repo.UpdateVersion(rev); err != nil {
			return errors.Wrapf(err, "installer: checking out %s at %s", remote, rev)
		}
	}
	return nil
}
