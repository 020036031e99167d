package vpm

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/filehash"
	"github.com/vellum-lang/vpm/internal/installer"
	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/registry"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
	"github.com/vellum-lang/vpm/internal/vpmlog"
)

// Ctx is the ambient configuration every op reads, adapted from
// golang-dep's context.go: where the teacher derived a single GOPATH from
// the environment, vpm derives a depot root and a package-server URL, each
// overridable by environment variable the way context.go's GOPATH
// resolution walks build.Default.
type Ctx struct {
	DepotRoot     string
	PackageServer string

	DownloadEngine installer.DownloadEngine

	// HostVersion is the running vellum runtime's own version, bound to the
	// anchor pseudo-package's singleton version set during resolution
	// (spec.md §4.3 step 1).
	HostVersion version.Version

	// AllowSymlinkWorkaround mirrors SPEC_FULL.md's ambient config note.
	// NewContext sets it to true. The installer does not read it: Unpack
	// falls back to copy-dereference on a filesystem lacking symlink
	// support whatever its value.
	AllowSymlinkWorkaround bool

	IOSink io.Writer
}

const (
	envDepotRoot     = "VPM_DEPOT_ROOT"
	envPackageServer = "VPM_PACKAGE_SERVER"
)

// NewContext builds a Ctx from the environment, defaulting DepotRoot to
// "$HOME/.vpm" the way golang-dep defaults to "$GOPATH/pkg/dep".
func NewContext() (*Ctx, error) {
	root := os.Getenv(envDepotRoot)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "determining default depot root")
		}
		root = filepath.Join(home, ".vpm")
	}

	return &Ctx{
		DepotRoot:              root,
		PackageServer:          os.Getenv(envPackageServer),
		DownloadEngine:         installer.DefaultDownloadEngine,
		HostVersion:            version.MustParse("1.0.0"),
		AllowSymlinkWorkaround: true,
		IOSink:                 os.Stderr,
	}, nil
}

// Logger returns a vpmlog.Logger writing to c.IOSink, defaulting to
// io.Discard when unset.
func (c *Ctx) Logger() *vpmlog.Logger {
	if c.IOSink == nil {
		return vpmlog.New(io.Discard)
	}
	return vpmlog.New(c.IOSink)
}

// OpenDepot opens (creating if needed) the depot at c.DepotRoot.
func (c *Ctx) OpenDepot() (*depot.Depot, error) {
	return depot.Open(c.DepotRoot)
}

// tarballURL builds the download URL for a package's content-addressed
// tarball on the configured package server: "<server>/<hash>.tar.gz",
// keyed by hash alone.
func (c *Ctx) tarballURL(hash string) string {
	return c.PackageServer + "/" + hash + ".tar.gz"
}

// LoadEnvironment reads Project.toml/Manifest.toml from root (searching
// upward for a Project.toml marker the way golang-dep's LoadProject walks
// toward a ManifestName marker) and wires an Environment ready for op
// dispatch against reg.
func (c *Ctx) LoadEnvironment(root string, reg *registry.Layered) (*Environment, error) {
	absRoot, err := findEnvironmentRoot(root)
	if err != nil {
		return nil, err
	}

	proj, err := readProjectAt(absRoot)
	if err != nil {
		return nil, err
	}
	man, err := readManifestAt(absRoot)
	if err != nil {
		return nil, err
	}

	d, err := c.OpenDepot()
	if err != nil {
		return nil, err
	}

	src := &registry.ResolverSource{Layered: reg}

	engine := c.DownloadEngine
	if engine == nil {
		engine = installer.DefaultDownloadEngine
	}

	in := &installer.Installer{
		Depot:  d,
		Engine: engine,
		Locate: func(hash string) (string, filehash.Hash, error) {
			expected, err := filehash.Parse(hash)
			if err == nil {
				return c.tarballURL(hash), expected, nil
			}
			// A tree hash, not a file hash: the package server is trusted
			// to serve a matching tarball; verification then falls to the
			// installer's post-unpack tree-hash recompute.
			return c.tarballURL(hash), filehash.Hash{}, nil
		},
	}

	hostVersion := c.HostVersion
	if hostVersion == (version.Version{}) {
		hostVersion = version.MustParse("1.0.0")
	}

	return &Environment{
		Root:        absRoot,
		Project:     proj,
		Manifest:    man,
		Depot:       d,
		Source:      src,
		Installer:   in,
		Log:         c.Logger(),
		HostVersion: hostVersion,
	}, nil
}

func findEnvironmentRoot(path string) (string, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "getting working directory")
		}
		path = wd
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", path)
	}

	dir := abs
	for {
		if _, err := os.Stat(filepath.Join(dir, manifest.ProjectName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("no %s found above %s", manifest.ProjectName, abs)
		}
		dir = parent
	}
}

func readProjectAt(root string) (*manifest.Project, error) {
	raw, err := os.ReadFile(filepath.Join(root, manifest.ProjectName))
	if err != nil {
		return nil, errors.Wrap(err, "reading Project.toml")
	}
	return manifest.ReadProject(raw)
}

func readManifestAt(root string) (*manifest.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(root, manifest.ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest.Manifest{Format: manifest.CurrentFormat, Entries: make(map[uuid.UUID]*manifest.Entry)}, nil
		}
		return nil, errors.Wrap(err, "reading Manifest.toml")
	}
	return manifest.ReadManifest(raw)
}
