package installer

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/filehash"
	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/platform"
	"github.com/vellum-lang/vpm/internal/treehash"
)

// TarballLocator resolves a tree hash to a download URL and expected file
// hash, the way a registry's PackageEntry source fields would; kept as a
// function value so installer doesn't need to import internal/registry.
type TarballLocator func(hash string) (url string, expected filehash.Hash, err error)

// Installer stages manifest entries into a Depot.
type Installer struct {
	Depot  *depot.Depot
	Engine DownloadEngine
	Locate TarballLocator
}

// New returns an Installer with the default HTTP download engine.
func New(d *depot.Depot, locate TarballLocator) *Installer {
	return &Installer{Depot: d, Engine: DefaultDownloadEngine, Locate: locate}
}

// Install materializes e's content into the depot (or leaves a path-
// tracked entry where it is) per spec.md §4.5's per-kind pipeline, and
// returns the directory the entry's content now lives in.
func (in *Installer) Install(e *manifest.Entry) (string, error) {
	ref, err := Resolve(e)
	if err != nil {
		return "", err
	}

	switch ref.Kind {
	case KindPath:
		if fi, err := os.Stat(ref.Path); err != nil || !fi.IsDir() {
			return "", errors.Errorf("installer: develop()'d path %s for %s is not a directory", ref.Path, e.Name)
		}
		return ref.Path, nil

	case KindRepo:
		dest := filepath.Join(in.Depot.ClonesDir(), e.UUID.String())
		if err := CloneOrUpdateRepo(ref.Repo.URL, dest, ref.Repo.Rev); err != nil {
			return "", err
		}
		if ref.Repo.Subdir != "" {
			return filepath.Join(dest, ref.Repo.Subdir), nil
		}
		return dest, nil

	case KindTreeHash:
		return in.installTreeHash(e, *ref.TreeHash)

	default:
		return "", errors.Errorf("installer: entry %s: unhandled source kind", e.Name)
	}
}

func (in *Installer) installTreeHash(e *manifest.Entry, hash treehash.Hash) (string, error) {
	dest, err := in.Depot.PackageDir(e.Name, hash)
	if err != nil {
		return "", errors.Wrapf(err, "installer: resolving package dir for %s", e.Name)
	}
	if _, err := os.Stat(dest); err == nil {
		return dest, nil // already present: content-addressed, so nothing to redo
	}

	url, expected, err := in.Locate(hash.String())
	if err != nil {
		return "", errors.Wrapf(err, "installer: locating package %s (%s)", e.Name, hash)
	}

	scratch := filepath.Join(in.Depot.ScratchspacesDir(), hash.String()+".tar.gz")
	if _, err := DownloadAndVerify(in.Engine, url, scratch, expected); err != nil {
		return "", errors.Wrapf(err, "installer: fetching %s", e.Name)
	}
	defer os.Remove(scratch)

	tmp := dest + ".partial"
	os.RemoveAll(tmp)
	if err := Unpack(scratch, tmp); err != nil {
		return "", errors.Wrapf(err, "installer: unpacking %s", e.Name)
	}

	got, err := treehash.Compute(tmp)
	if err != nil {
		return "", errors.Wrapf(err, "installer: hashing unpacked %s", e.Name)
	}
	if got != hash {
		os.RemoveAll(tmp)
		return "", errors.Errorf("installer: %s: unpacked tree hash %s does not match manifest %s", e.Name, got, hash)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrapf(err, "installer: creating package name dir for %s", e.Name)
	}
	if err := RenameWithFallback(tmp, dest); err != nil {
		return "", errors.Wrapf(err, "installer: placing %s into depot", e.Name)
	}
	if err := depot.MarkPackageSlug(dest, hash); err != nil {
		return "", errors.Wrapf(err, "installer: marking slug for %s", e.Name)
	}

	if artifactsRaw, err := os.ReadFile(filepath.Join(dest, "Artifacts.toml")); err == nil {
		specs, err := ReadArtifactsToml(artifactsRaw)
		if err != nil {
			return "", errors.Wrapf(err, "installer: %s: bad Artifacts.toml", e.Name)
		}
		if len(specs) > 0 {
			if _, err := SelectAndInstallArtifact(hostPlatform(), specs, in.Depot, in.Engine); err != nil {
				return "", err
			}
		}
	}

	return dest, nil
}

// hostPlatform is overridable by tests; production code resolves it from
// platform.Host.
var hostPlatform = func() platform.Platform { return platform.Host() }
