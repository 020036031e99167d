// Package treehash computes and represents the 160-bit content address
// (spec.md §3 "Tree hash") that identifies an installed source tree. The
// walk is modeled directly on golang-dep's internal/fs.HashFromNode: a
// breadth-first traversal whose hash is a function of both pathnames and
// contents, so that renaming or adding an empty directory changes the
// digest.
package treehash

import (
	"crypto/sha1" //nolint:gosec // content addressing, not a security boundary
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Hash is a 160-bit tree content address.
type Hash [20]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Slug returns the first n hex characters of the hash, used as an on-disk
// directory name (spec.md §4.6/§6: "slug is the first 8 hex chars").
func (h Hash) Slug(n int) string {
	s := h.String()
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// Parse reads a hex-encoded tree hash.
func Parse(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(h) {
		return Hash{}, errors.Errorf("invalid tree hash %q", s)
	}
	copy(h[:], b)
	return h, nil
}

var ignoredNames = map[string]bool{
	".git": true, ".hg": true, ".svn": true, ".bzr": true,
}

// Compute walks root breadth-first and returns its content-addressed tree
// hash. VCS metadata directories are skipped, matching golang-dep's
// HashFromNode treatment of "vendor" and VCS directories.
func Compute(root string) (Hash, error) {
	h := sha1.New() //nolint:gosec
	queue := []string{root}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		fi, err := os.Lstat(path)
		if err != nil {
			return Hash{}, errors.Wrapf(err, "hashing %s", path)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return Hash{}, errors.Wrap(err, "computing relative path")
		}
		h.Write([]byte(filepath.ToSlash(rel)))

		mode := fi.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return Hash{}, errors.Wrapf(err, "reading symlink %s", path)
			}
			h.Write([]byte{0})
			h.Write([]byte(target))
		case fi.IsDir():
			entries, err := os.ReadDir(path)
			if err != nil {
				return Hash{}, errors.Wrapf(err, "reading dir %s", path)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				if ignoredNames[e.Name()] {
					continue
				}
				names = append(names, e.Name())
			}
			sort.Strings(names)
			h.Write([]byte{1})
			for _, n := range names {
				queue = append(queue, filepath.Join(path, n))
			}
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return Hash{}, errors.Wrapf(err, "reading file %s", path)
			}
			h.Write([]byte{2})
			h.Write(data)
		}
	}

	var out Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}
