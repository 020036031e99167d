package installer

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Unpack extracts the gzipped tarball at tarPath into destDir, which must
// not already exist. Entries that are symlinks are created as real
// symlinks when destDir's filesystem supports them (per SupportsSymlinks'
// probe); otherwise the link target is recorded and the file is
// materialized by DereferenceCopy once the rest of the tree has been
// extracted, mirroring spec.md §4.5's "detect symlink support, fall back
// to copy-dereference" contract.
func Unpack(tarPath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", destDir)
	}

	f, err := os.Open(tarPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", tarPath)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "reading gzip header of %s", tarPath)
	}
	defer gz.Close()

	symlinksOK := SupportsSymlinks(destDir)
	var deferredSymlinks []tarSymlink

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading tar entries from %s", tarPath)
		}

		target := filepath.Join(destDir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return errors.Wrapf(err, "creating directory %s", target)
			}
		case tar.TypeSymlink:
			if symlinksOK {
				if err := os.Symlink(hdr.Linkname, target); err != nil {
					return errors.Wrapf(err, "creating symlink %s", target)
				}
			} else {
				deferredSymlinks = append(deferredSymlinks, tarSymlink{target: target, linkname: hdr.Linkname})
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", target)
			}
			if err := extractFile(tr, target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		}
	}

	for _, sl := range deferredSymlinks {
		src := filepath.Join(filepath.Dir(sl.target), sl.linkname)
		if err := DereferenceCopy(src, sl.target); err != nil {
			return errors.Wrapf(err, "dereferencing symlink %s -> %s", sl.target, sl.linkname)
		}
	}
	return nil
}

type tarSymlink struct {
	target, linkname string
}

func extractFile(r io.Reader, dest string, mode os.FileMode) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dest)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return errors.Wrapf(err, "writing %s", dest)
	}
	return nil
}
