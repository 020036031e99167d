package installer

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// RenameWithFallback attempts to rename src to dst, falling back to a
// recursive copy-then-remove when the rename fails across a device
// boundary — adapted from golang-dep's internal/fs.RenameWithFallback,
// generalized to fall back onto go-shutil's CopyTree instead of a
// hand-rolled directory copy.
func RenameWithFallback(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return renameByCopy(src, dst)
}

func renameByCopy(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "renameByCopy: stat %s", src)
	}

	if fi.IsDir() {
		if err := shutil.CopyTree(src, dst, nil); err != nil {
			return errors.Wrapf(err, "rename fallback: copying directory %s to %s", src, dst)
		}
	} else if _, err := shutil.Copy(src, dst, false); err != nil {
		return errors.Wrapf(err, "rename fallback: copying file %s to %s", src, dst)
	}

	return errors.Wrapf(os.RemoveAll(src), "rename fallback: cannot remove %s after copy", src)
}

// SupportsSymlinks reports whether dir's filesystem will let us create a
// symlink, by actually attempting one and observing the result —
// mirroring golang-dep's isCaseSensitiveFilesystem "try the filesystem,
// observe what happens" approach (spec.md §4.5's symlink-support probe).
func SupportsSymlinks(dir string) bool {
	target := filepath.Join(dir, ".vpm-symlink-probe-target")
	link := filepath.Join(dir, ".vpm-symlink-probe-link")
	defer os.Remove(target)
	defer os.Remove(link)

	if err := os.WriteFile(target, []byte{}, 0o644); err != nil {
		return false
	}
	err := os.Symlink(target, link)
	return err == nil
}

// DereferenceCopy copies src to dst the way a symlink-unfriendly
// destination filesystem requires: a file src is copied as a regular file,
// and for a directory src every symlink in the tree is resolved to its
// target's content rather than recreated as a link, using go-shutil's
// CopyTree with symlink-following left at its default (go-shutil
// dereferences unless told to preserve symlinks).
func DereferenceCopy(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "dereference-copy: stat %s", src)
	}
	if !fi.IsDir() {
		_, err := shutil.Copy(src, dst, true)
		return errors.Wrapf(err, "dereference-copy %s to %s", src, dst)
	}
	return errors.Wrapf(shutil.CopyTree(src, dst, nil), "dereference-copy %s to %s", src, dst)
}
