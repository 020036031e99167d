package installer

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/filehash"
	"github.com/vellum-lang/vpm/internal/platform"
	"github.com/vellum-lang/vpm/internal/treehash"
)

// ArtifactSpec is one row of an extracted package's Artifacts.toml
// (spec.md §4.5 step 5): a platform triplet, the content-addressed tree
// hash the unpacked artifact must match, the download URL, and the
// tarball's own file hash for download integrity.
type ArtifactSpec struct {
	Triplet  string `toml:"triplet"`
	TreeHash string `toml:"tree_hash"`
	URL      string `toml:"url"`
	SHA256   string `toml:"sha256"`
}

type rawArtifactsToml struct {
	Artifacts []ArtifactSpec `toml:"artifact"`
}

// ReadArtifactsToml parses an Artifacts.toml document.
func ReadArtifactsToml(raw []byte) ([]ArtifactSpec, error) {
	var doc rawArtifactsToml
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing Artifacts.toml")
	}
	return doc.Artifacts, nil
}

// SelectAndInstallArtifact implements spec.md §4.5 step 5: among specs
// whose triplet matches host (wildcards permitted on libc/libgfortran/
// libstdcxx/cxxstring_abi), picks the lexicographically-last-sorting
// triplet, downloads+verifies its tarball into a scratch file, and
// unpacks it into the depot's shared artifacts/<tree-hash>/ directory —
// a no-op if that directory is already populated, since artifacts are
// shared content-addressed state across every project that needs them.
func SelectAndInstallArtifact(host platform.Platform, specs []ArtifactSpec, d *depot.Depot, engine DownloadEngine) (string, error) {
	candidates := make([]platform.Artifact, 0, len(specs))
	byRef := make(map[string]ArtifactSpec, len(specs))
	for _, s := range specs {
		p, ok := platform.Parse(s.Triplet)
		if !ok {
			continue // unknown/malformed triplet: never a match, skip per Parse's total-but-Unknown contract
		}
		candidates = append(candidates, platform.Artifact{Platform: p, Ref: s.TreeHash})
		byRef[s.TreeHash] = s
	}

	chosen, ok := platform.SelectArtifact(host, candidates)
	if !ok {
		return "", errors.Errorf("installer: no artifact variant matches host platform %s", host.Triplet())
	}
	spec := byRef[chosen.Ref]

	dest := d.ArtifactDir(spec.TreeHash)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil // already installed by a previous project
	}

	expected, err := filehash.Parse(spec.SHA256)
	if err != nil {
		return "", errors.Wrapf(err, "installer: artifact %s: bad sha256", spec.TreeHash)
	}

	scratch := filepath.Join(d.ScratchspacesDir(), spec.TreeHash+".tar.gz")
	if _, err := DownloadAndVerify(engine, spec.URL, scratch, expected); err != nil {
		return "", errors.Wrapf(err, "installer: fetching artifact %s", spec.TreeHash)
	}
	defer os.Remove(scratch)

	tmp := dest + ".partial"
	os.RemoveAll(tmp)
	if err := Unpack(scratch, tmp); err != nil {
		return "", errors.Wrapf(err, "installer: unpacking artifact %s", spec.TreeHash)
	}

	got, err := treehash.Compute(tmp)
	if err != nil {
		return "", errors.Wrapf(err, "installer: hashing unpacked artifact %s", spec.TreeHash)
	}
	if got.String() != spec.TreeHash {
		os.RemoveAll(tmp)
		return "", errors.Errorf("installer: artifact %s: unpacked tree hash %s does not match", spec.TreeHash, got)
	}

	if err := RenameWithFallback(tmp, dest); err != nil {
		return "", errors.Wrapf(err, "installer: placing artifact %s into depot", spec.TreeHash)
	}
	return dest, nil
}
