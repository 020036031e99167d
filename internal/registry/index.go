// Package registry implements the on-disk registry index described in
// spec.md §4.2: an immutable per-registry view keyed by package UUID that
// lazily parses Registry.toml, Package.toml, Versions.toml, Compat.toml,
// Deps.toml, WeakCompat.toml and WeakDeps.toml, and expands the
// compressed-range compat/deps tables on demand.
//
// The lazy, lock-guarded, memoized parse is modeled on golang-dep's
// typed_radix.go caching pattern and its toml.go tomlMapper helpers,
// retargeted from JSON-ish trees to github.com/pelletier/go-toml's
// Tree/Query API.
package registry

import (
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// AnchorUUID identifies the pseudo-package representing the host language
// runtime (spec.md §3 invariant: "deps[v] always implicitly contains the
// anchor UUID"; §4.2: "every version implicitly depends on the anchor
// pseudo-package").
var AnchorUUID = uuid.MustParse("1222c996-2000-5f04-935c-e9e9f3ed2e0b")

// ErrNameConflict is returned when two layered registries disagree about
// the name of the same UUID (spec.md §9 Open Question (b): treated as a
// hard error here, not a silent preference).
var ErrNameConflict = errors.New("registry: same uuid claims different names across registries")

// ErrHashMismatch is spec.md §4.2's RegistryHashMismatch: two registries
// disagree about the tree hash of the same (uuid, version).
type ErrHashMismatch struct {
	UUID    uuid.UUID
	Version version.Version
}

func (e *ErrHashMismatch) Error() string {
	return "registry: tree_hash conflict for " + e.UUID.String() + "@" + e.Version.String() + " across layered registries"
}

// ErrOverlappingCompat is returned when two compressed-range rows assign
// different values to the same (version, key) during expansion
// (spec.md §4.2 step (d)).
type ErrOverlappingCompat struct {
	Key     string
	Version version.Version
}

func (e *ErrOverlappingCompat) Error() string {
	return "registry: overlapping compat/deps rows disagree for " + e.Key + "@" + e.Version.String()
}

// Backend abstracts where a registry's raw TOML files come from: a
// directory on disk, or an in-memory path→bytes map decoded from a
// tarball-with-sidecar-hash registry (spec.md §4.2).
type Backend interface {
	// ReadFile returns the raw bytes of relPath, or an error satisfying
	// os.IsNotExist if it is absent.
	ReadFile(relPath string) ([]byte, error)
}

// Index is a single registry's lazily-parsed, memoized view.
type Index struct {
	backend Backend

	mu       sync.Mutex
	topLevel *topLevel                  // Registry.toml, parsed eagerly on NewIndex
	packages map[uuid.UUID]*packageFile // memoized per-package parse
}

type topLevelEntry struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type topLevel struct {
	byUUID map[uuid.UUID]topLevelEntry
}

// NewIndex parses Registry.toml eagerly (populating {uuid -> (name,
// relative_path)}) and returns an Index whose per-package files are parsed
// lazily on first access.
func NewIndex(backend Backend) (*Index, error) {
	raw, err := backend.ReadFile("Registry.toml")
	if err != nil {
		return nil, errors.Wrap(err, "reading Registry.toml")
	}

	var doc struct {
		Packages map[string]topLevelEntry `toml:"packages"`
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing Registry.toml")
	}

	tl := &topLevel{byUUID: make(map[uuid.UUID]topLevelEntry, len(doc.Packages))}
	for k, v := range doc.Packages {
		id, err := uuid.Parse(k)
		if err != nil {
			return nil, errors.Wrapf(err, "Registry.toml: bad uuid key %q", k)
		}
		tl.byUUID[id] = v
	}

	return &Index{
		backend:  backend,
		topLevel: tl,
		packages: make(map[uuid.UUID]*packageFile),
	}, nil
}

// Has reports whether the top-level index knows about id, without parsing
// its per-package files.
func (idx *Index) Has(id uuid.UUID) bool {
	_, ok := idx.topLevel.byUUID[id]
	return ok
}

// Package returns the fully-expanded per-package data for id, parsing and
// memoizing it under a lock on first access (single-flight: concurrent
// callers for the same id block on the same parse rather than duplicating
// work).
func (idx *Index) Package(id uuid.UUID) (*PackageEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if pf, ok := idx.packages[id]; ok {
		return pf.entry, pf.err
	}

	entry, err := idx.parsePackage(id)
	idx.packages[id] = &packageFile{entry: entry, err: err}
	return entry, err
}

type packageFile struct {
	entry *PackageEntry
	err   error
}

func (idx *Index) parsePackage(id uuid.UUID) (*PackageEntry, error) {
	tle, ok := idx.topLevel.byUUID[id]
	if !ok {
		return nil, errors.Errorf("registry: unknown package uuid %s", id)
	}

	pkg, err := readPackageToml(idx.backend, tle.Path)
	if err != nil {
		return nil, err
	}
	if pkg.Name != tle.Name {
		return nil, errors.Wrapf(ErrNameConflict, "uuid %s: Registry.toml says %q, Package.toml says %q", id, tle.Name, pkg.Name)
	}
	pkg.UUID = id

	versions, err := readVersionsToml(idx.backend, tle.Path)
	if err != nil {
		return nil, err
	}
	pkg.Versions = versions

	sortedVersions := make([]version.Version, 0, len(versions))
	for v := range versions {
		sortedVersions = append(sortedVersions, v)
	}
	sortVersions(sortedVersions)

	compat, err := expandRangeTable(idx.backend, tle.Path, "Compat.toml", sortedVersions)
	if err != nil {
		return nil, err
	}
	deps, err := expandDepsTable(idx.backend, tle.Path, "Deps.toml", sortedVersions)
	if err != nil {
		return nil, err
	}
	weakCompat, err := expandRangeTable(idx.backend, tle.Path, "WeakCompat.toml", sortedVersions)
	if err != nil {
		return nil, err
	}
	weakDeps, err := expandDepsTable(idx.backend, tle.Path, "WeakDeps.toml", sortedVersions)
	if err != nil {
		return nil, err
	}

	pkg.CompatByName = compat
	pkg.DepsByName = deps
	pkg.WeakCompatByName = weakCompat
	pkg.WeakDepsByName = weakDeps

	return pkg, nil
}
