// Package filehash implements the 256-bit content address of a downloaded
// file (spec.md §3 "File hash") and the sidecar hash-cache contract from
// spec.md §6: "<file>.sha256 containing 64 lowercase hex chars; valid iff
// mtime(cache) >= mtime(file) and contents equal the computed hash."
package filehash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Hash is a 256-bit file content address.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Parse reads a 64-char lowercase hex file hash.
func Parse(s string) (Hash, error) {
	var h Hash
	s = strings.TrimSpace(s)
	if len(s) != 64 {
		return Hash{}, errors.Errorf("invalid file hash %q: want 64 hex chars", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, errors.Wrapf(err, "invalid file hash %q", s)
	}
	copy(h[:], b)
	return h, nil
}

// Compute streams path through SHA-256.
func Compute(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, errors.Wrapf(err, "opening %s for hashing", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Hash{}, errors.Wrapf(err, "hashing %s", path)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// CacheState is the sidecar ".sha256" file's relationship to the data file
// it accompanies, per spec.md §6 / §4.5 step 3.
type CacheState int

const (
	// CacheConsistent: the sidecar exists, is newer than the data file, and
	// its recorded hash equals the expected hash passed by the caller.
	CacheConsistent CacheState = iota
	// CacheMissing: no sidecar file exists.
	CacheMissing
	// CacheMismatch: the sidecar's recorded hash does not equal the
	// expected hash passed by the caller.
	CacheMismatch
	// CacheFileModified: the sidecar predates the data file's mtime, so it
	// cannot be trusted without recomputing.
	CacheFileModified
	// CacheMismatchAfterRecompute: the data file changed since the sidecar
	// was written, and the freshly recomputed hash still does not match.
	CacheMismatchAfterRecompute
)

func sidecarPath(path string) string { return path + ".sha256" }

// Verify checks path against expected, using and maintaining the sidecar
// cache. It returns the resulting cache state and whether the file is
// verified to equal expected.
func Verify(path string, expected Hash) (CacheState, bool, error) {
	sidecar := sidecarPath(path)

	dataInfo, err := os.Stat(path)
	if err != nil {
		return CacheMissing, false, errors.Wrapf(err, "stat %s", path)
	}

	cacheInfo, err := os.Stat(sidecar)
	switch {
	case os.IsNotExist(err):
		_, ok, err := recomputeAndCache(path, sidecar, expected)
		return CacheMissing, ok, err
	case err != nil:
		return CacheMissing, false, errors.Wrapf(err, "stat %s", sidecar)
	}

	if cacheInfo.ModTime().Before(dataInfo.ModTime()) {
		state, ok, err := recomputeAndCache(path, sidecar, expected)
		if err != nil {
			return state, ok, err
		}
		if !ok {
			return CacheMismatchAfterRecompute, false, nil
		}
		return CacheFileModified, true, nil
	}

	raw, err := os.ReadFile(sidecar)
	if err != nil {
		return CacheMissing, false, errors.Wrapf(err, "reading %s", sidecar)
	}
	cached, err := Parse(string(raw))
	if err != nil {
		return recomputeAndCache(path, sidecar, expected)
	}
	if cached != expected {
		return CacheMismatch, false, nil
	}
	return CacheConsistent, true, nil
}

func recomputeAndCache(path, sidecar string, expected Hash) (CacheState, bool, error) {
	h, err := Compute(path)
	if err != nil {
		return CacheMissing, false, err
	}
	if err := os.WriteFile(sidecar, []byte(h.String()), 0o644); err != nil {
		return CacheMissing, false, errors.Wrapf(err, "writing %s", sidecar)
	}
	return CacheConsistent, h == expected, nil
}
