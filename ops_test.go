package vpm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/filehash"
	"github.com/vellum-lang/vpm/internal/installer"
	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/registry"
	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

const exampleUUID = "7876af07-2f6c-407b-b60e-4f2d4a9fd7dc"
const exampleTreeHash = "000000000000000000000000000000000000000c" // 0.6.0

func testLayered(t *testing.T) *registry.Layered {
	t.Helper()
	files := map[string][]byte{
		"Registry.toml": []byte(`
[packages]
"` + exampleUUID + `" = { name = "Example", path = "E/Example" }
`),
		"E/Example/Package.toml": []byte(`
name = "Example"
repo = "https://example.test/Example.git"
`),
		"E/Example/Versions.toml": []byte(`
["0.5.0"]
git-tree-sha1 = "000000000000000000000000000000000000000a"

["0.6.0"]
git-tree-sha1 = "` + exampleTreeHash + `"
`),
		"E/Example/Compat.toml": []byte(``),
		"E/Example/Deps.toml":   []byte(``),
	}
	idx, err := registry.NewIndex(registry.NewTarballBackend(files))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return &registry.Layered{Indexes: []*registry.Index{idx}}
}

// testEnv builds an Environment rooted at a fresh temp project, backed by
// a fresh temp depot and the Example registry fixture, with the 0.6.0
// tree already present in the depot's package store so Install never
// needs the network.
func testEnv(t *testing.T) *Environment {
	t.Helper()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, manifest.ProjectName), []byte(`name = "root"
uuid = "11111111-1111-1111-1111-111111111111"
`), 0o644); err != nil {
		t.Fatalf("writing Project.toml: %v", err)
	}

	d, err := depot.Open(t.TempDir())
	if err != nil {
		t.Fatalf("depot.Open: %v", err)
	}

	// Pre-seed the tree-hash content address so installTreeHash's
	// os.Stat(dest) short-circuit fires and no download is attempted.
	exampleHash, err := treehash.Parse(exampleTreeHash)
	if err != nil {
		t.Fatalf("parsing example tree hash: %v", err)
	}
	dest, err := d.PackageDir("Example", exampleHash)
	if err != nil {
		t.Fatalf("resolving package dir: %v", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("seeding package dir: %v", err)
	}
	if err := depot.MarkPackageSlug(dest, exampleHash); err != nil {
		t.Fatalf("marking package slug: %v", err)
	}

	layered := testLayered(t)
	src := &registry.ResolverSource{Layered: layered}

	in := &installer.Installer{
		Depot:  d,
		Engine: installer.DefaultDownloadEngine,
		Locate: func(hash string) (string, filehash.Hash, error) {
			return "https://example.test/" + hash + ".tar.gz", filehash.Hash{}, nil
		},
	}

	proj, err := readProjectAt(root)
	if err != nil {
		t.Fatalf("readProjectAt: %v", err)
	}
	man, err := readManifestAt(root)
	if err != nil {
		t.Fatalf("readManifestAt: %v", err)
	}

	return &Environment{
		Root:        root,
		Project:     proj,
		Manifest:    man,
		Depot:       d,
		Source:      src,
		Installer:   in,
		HostVersion: version.MustParse("1.0.0"),
	}
}

func TestAddResolvesInstallsAndCommits(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)

	err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, ok := e.Project.Deps["Example"]; !ok {
		t.Errorf("expected Example in project.deps after Add")
	}
	entry, ok := e.Manifest.Entries[id]
	if !ok {
		t.Fatalf("expected a manifest entry for Example after Add")
	}
	if entry.Version == nil || entry.Version.String() != "0.6.0" {
		t.Errorf("expected Example resolved to 0.6.0, got %v", entry.Version)
	}

	if _, err := os.Stat(filepath.Join(e.Root, manifest.ManifestName)); err != nil {
		t.Errorf("expected Manifest.toml to be written: %v", err)
	}

	// Reloading from disk should reflect the same entry.
	reloaded, err := readManifestAt(e.Root)
	if err != nil {
		t.Fatalf("readManifestAt after commit: %v", err)
	}
	if _, ok := reloaded.Entries[id]; !ok {
		t.Errorf("expected committed Manifest.toml to carry the Example entry")
	}
}

func TestAddThenRmPrunesEntry(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)

	if err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := Rm(e, []string{"Example"}, OpOptions{Mode: ModeCombined}, time.Time{}); err != nil {
		t.Fatalf("Rm: %v", err)
	}

	if _, ok := e.Project.Deps["Example"]; ok {
		t.Errorf("expected Example removed from project.deps")
	}
	if _, ok := e.Manifest.Entries[id]; ok {
		t.Errorf("expected Example entry pruned from manifest")
	}
}

func TestRmUnknownNameErrors(t *testing.T) {
	e := testEnv(t)
	err := Rm(e, []string{"Nonexistent"}, OpOptions{Mode: ModeCombined}, time.Time{})
	if err == nil {
		t.Fatalf("expected an error removing a name that isn't a direct dependency")
	}
	var se *SpecError
	if !asSpecError(err, &se) {
		t.Errorf("expected a *SpecError, got %T (%v)", err, err)
	}
}

func TestPinIsIdempotentAndFreeReResolves(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)
	if err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := Pin(e, []string{"Example"}, time.Time{}); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if !e.Manifest.Entries[id].Pinned {
		t.Fatalf("expected Example to be pinned")
	}
	if err := Pin(e, []string{"Example"}, time.Time{}); err != nil {
		t.Fatalf("second Pin: %v", err)
	}
	if !e.Manifest.Entries[id].Pinned {
		t.Fatalf("expected Example to remain pinned after a second pin")
	}

	if err := Free(e, []string{"Example"}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if e.Manifest.Entries[id].Pinned {
		t.Fatalf("expected Example unpinned after Free")
	}
}

func TestInstantiateIsANoopOnAnAlreadyInstalledManifest(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)
	if err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	diff, err := Instantiate(e, DefaultOptions(), time.Time{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if len(diff.Added) != 0 || len(diff.Removed) != 0 || len(diff.Modified) != 0 {
		t.Errorf("expected an empty diff from instantiate, got %+v", diff)
	}
}

func TestStatusReportsPresentAndHashOK(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)
	if err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	statuses, err := Status(e)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected exactly one status entry, got %d", len(statuses))
	}
	st := statuses[0]
	if st.Tracking != "tree_hash" {
		t.Errorf("Tracking = %q, want tree_hash", st.Tracking)
	}
	if !st.Present {
		t.Errorf("expected Present=true for a seeded package dir")
	}
}

func TestGCSweepsAnUnreferencedPackage(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)
	if err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Register the environment under the depot so gc can find its manifest.
	envDir := filepath.Join(e.Depot.EnvironmentsDir(), "root")
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		t.Fatalf("mkdir envDir: %v", err)
	}
	raw, err := e.Manifest.MarshalTOML()
	if err != nil {
		t.Fatalf("MarshalTOML: %v", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, manifest.ManifestName), raw, 0o644); err != nil {
		t.Fatalf("writing registered manifest: %v", err)
	}

	// An orphaned package dir unreferenced by any registered environment.
	orphanHash, err := treehash.Parse("111111111111111111111111111111111111111b")
	if err != nil {
		t.Fatalf("parsing orphan tree hash: %v", err)
	}
	orphanDir, err := e.Depot.PackageDir("Orphan", orphanHash)
	if err != nil {
		t.Fatalf("resolving orphan package dir: %v", err)
	}
	if err := os.MkdirAll(orphanDir, 0o755); err != nil {
		t.Fatalf("seeding orphan dir: %v", err)
	}
	if err := depot.MarkPackageSlug(orphanDir, orphanHash); err != nil {
		t.Fatalf("marking orphan slug: %v", err)
	}

	report, err := GC(e.Depot, 0, time.Now())
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
		t.Errorf("expected orphaned package dir to be swept, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(orphanDir)); !os.IsNotExist(err) {
		t.Errorf("expected orphan's now-empty package name dir to be swept too")
	}

	exampleHash, err := treehash.Parse(exampleTreeHash)
	if err != nil {
		t.Fatalf("parsing example tree hash: %v", err)
	}
	exampleDir, err := e.Depot.PackageDir("Example", exampleHash)
	if err != nil {
		t.Fatalf("resolving example package dir: %v", err)
	}
	if _, err := os.Stat(exampleDir); err != nil {
		t.Errorf("expected referenced package dir to survive gc: %v", err)
	}
	if report.Packages == nil {
		t.Errorf("expected a non-nil packages GCResult")
	}
}

func TestUpFixedLevelKeepsCurrentVersion(t *testing.T) {
	e := testEnv(t)
	id := uuid.MustParse(exampleUUID)
	if err := Add(e, []PackageSpec{{Name: "Example", UUID: id}}, DefaultOptions(), time.Time{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A FIXED-level up should re-resolve to the same version it already
	// has (no newer version satisfies an exact pin at the current one).
	opts := DefaultOptions()
	opts.Level = LevelFixed
	if err := Up(e, opts, time.Time{}); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if e.Manifest.Entries[id].Version.String() != "0.6.0" {
		t.Errorf("expected Up with LevelFixed to keep 0.6.0, got %v", e.Manifest.Entries[id].Version)
	}
}

func asSpecError(err error, target **SpecError) bool {
	se, ok := err.(*SpecError)
	if ok {
		*target = se
	}
	return ok
}
