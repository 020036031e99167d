package manifest

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SafeWriter transactionalizes a Project+Manifest write into the same
// write-to-temp-then-rename-with-rollback protocol as golang-dep's
// txn_writer.go: write both files into a temp dir first, then swap them
// into place one at a time, restoring anything already swapped if a later
// step fails.
type SafeWriter struct {
	Project  *Project
	Manifest *Manifest
}

// Write commits the writer's payload into root, which must already exist.
// Either field may be nil to skip writing that file.
func (sw *SafeWriter) Write(root string) error {
	if sw.Project == nil && sw.Manifest == nil {
		return nil
	}

	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return errors.Errorf("manifest: root %q is not a directory", root)
	}

	td, err := os.MkdirTemp(filepath.Dir(root), "vpm-write-")
	if err != nil {
		return errors.Wrap(err, "creating temp dir for atomic write")
	}
	defer os.RemoveAll(td)

	ppath := filepath.Join(root, ProjectName)
	mpath := filepath.Join(root, ManifestName)

	if sw.Project != nil {
		raw, err := sw.Project.MarshalTOML()
		if err != nil {
			return errors.Wrap(err, "marshaling Project.toml")
		}
		if err := os.WriteFile(filepath.Join(td, ProjectName), raw, 0o644); err != nil {
			return errors.Wrap(err, "writing Project.toml to temp dir")
		}
	}
	if sw.Manifest != nil {
		raw, err := sw.Manifest.MarshalTOML()
		if err != nil {
			return errors.Wrap(err, "marshaling Manifest.toml")
		}
		if err := os.WriteFile(filepath.Join(td, ManifestName), raw, 0o644); err != nil {
			return errors.Wrap(err, "writing Manifest.toml to temp dir")
		}
	}

	type swap struct{ from, to string }
	var restore []swap
	var failed error

	commit := func(name, dst string) bool {
		src := filepath.Join(td, name)
		if _, err := os.Stat(src); err != nil {
			return true // nothing staged for this file
		}
		if _, err := os.Stat(dst); err == nil {
			bak := dst + ".orig"
			if err := os.Rename(dst, bak); err != nil {
				failed = errors.Wrapf(err, "backing up existing %s", name)
				return false
			}
			restore = append(restore, swap{from: bak, to: dst})
		}
		if err := os.Rename(src, dst); err != nil {
			failed = errors.Wrapf(err, "committing new %s", name)
			return false
		}
		return true
	}

	if commit(ProjectName, ppath) && commit(ManifestName, mpath) {
		for _, s := range restore {
			os.Remove(s.from)
		}
		return nil
	}

	for _, s := range restore {
		os.Rename(s.from, s.to)
	}
	return failed
}
