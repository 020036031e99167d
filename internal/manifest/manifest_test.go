package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

const (
	idA = "00000000-0000-0000-0000-00000000000a"
	idB = "00000000-0000-0000-0000-00000000000b"
)

func sampleManifest(t *testing.T) *Manifest {
	t.Helper()
	m := newManifest()
	m.HostVersion = version.MustParse("1.9.0")

	th := mustTreeHash(t)
	vA := version.MustParse("1.0.0")
	m.Entries[uuid.MustParse(idA)] = &Entry{
		UUID:     uuid.MustParse(idA),
		Name:     "A",
		Version:  &vA,
		TreeHash: &th,
		Deps:     map[string]uuid.UUID{"B": uuid.MustParse(idB)},
	}
	vB := version.MustParse("2.0.0")
	m.Entries[uuid.MustParse(idB)] = &Entry{
		UUID:     uuid.MustParse(idB),
		Name:     "B",
		Version:  &vB,
		TreeHash: &th,
	}
	return m
}

func mustTreeHash(t *testing.T) treehash.Hash {
	t.Helper()
	th, err := treehash.Parse("000000000000000000000000000000000000000a")
	if err != nil {
		t.Fatalf("treehash.Parse: %v", err)
	}
	return th
}

func TestManifestRoundTrip(t *testing.T) {
	m := sampleManifest(t)

	raw, err := m.MarshalTOML()
	if err != nil {
		t.Fatalf("MarshalTOML: %v", err)
	}

	got, err := ReadManifest(raw)
	if err != nil {
		t.Fatalf("ReadManifest: %v\n--- toml ---\n%s", err, raw)
	}

	if got.Format != CurrentFormat {
		t.Errorf("Format = %q, want %q", got.Format, CurrentFormat)
	}
	if !got.HostVersion.Equal(m.HostVersion) {
		t.Errorf("HostVersion = %s, want %s", got.HostVersion, m.HostVersion)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got.Entries))
	}
	a := got.Entries[uuid.MustParse(idA)]
	if a == nil || a.Name != "A" {
		t.Fatalf("entry A missing or misnamed: %+v", a)
	}
	if len(a.Deps) != 1 || a.Deps["B"] != uuid.MustParse(idB) {
		t.Errorf("A.Deps = %v, want B -> %s", a.Deps, idB)
	}
}

func TestManifestCatchesDanglingDep(t *testing.T) {
	m := newManifest()
	m.Entries[uuid.MustParse(idA)] = &Entry{
		UUID: uuid.MustParse(idA),
		Name: "A",
		Deps: map[string]uuid.UUID{"B": uuid.MustParse(idB)}, // B never added
	}
	if _, err := m.MarshalTOML(); err == nil {
		t.Fatal("expected an invariant error for a dangling dep edge")
	}
}

func TestPinThenFreeIsIdentityModuloPinned(t *testing.T) {
	m := sampleManifest(t)
	id := uuid.MustParse(idA)
	before := *m.Entries[id]

	if err := m.Pin(id); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if !m.Entries[id].Pinned {
		t.Fatal("expected Pinned = true after Pin")
	}
	if err := m.Pin(id); err != nil {
		t.Fatalf("second Pin: %v", err)
	}

	if err := m.Free(id); err != nil {
		t.Fatalf("Free: %v", err)
	}
	after := *m.Entries[id]
	before.Pinned, after.Pinned = false, false
	if before.Path != after.Path || (before.Repo == nil) != (after.Repo == nil) {
		t.Errorf("pin;free changed tracking: before=%+v after=%+v", before, after)
	}
}

func TestDiffManifestsAddedRemovedModified(t *testing.T) {
	old := sampleManifest(t)
	updated := sampleManifest(t)

	// Remove B, modify A's version, add a new C.
	delete(updated.Entries, uuid.MustParse(idB))
	delete(updated.Entries[uuid.MustParse(idA)].Deps, "B")
	v := version.MustParse("1.1.0")
	updated.Entries[uuid.MustParse(idA)].Version = &v

	const idC = "00000000-0000-0000-0000-00000000000c"
	th := mustTreeHash(t)
	vc := version.MustParse("1.0.0")
	updated.Entries[uuid.MustParse(idC)] = &Entry{
		UUID: uuid.MustParse(idC), Name: "C", Version: &vc, TreeHash: &th,
	}

	diff := DiffManifests(old, updated)
	if len(diff.Added) != 1 || diff.Added[0] != uuid.MustParse(idC) {
		t.Errorf("Added = %v, want [%s]", diff.Added, idC)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != uuid.MustParse(idB) {
		t.Errorf("Removed = %v, want [%s]", diff.Removed, idB)
	}
	if len(diff.Modified) != 1 || diff.Modified[0] != uuid.MustParse(idA) {
		t.Errorf("Modified = %v, want [%s]", diff.Modified, idA)
	}
}

func TestSafeWriterAtomicCommitAndRollback(t *testing.T) {
	dir := t.TempDir()

	proj := newProject()
	proj.Deps["A"] = uuid.MustParse(idA)

	sw := &SafeWriter{Project: proj, Manifest: sampleManifest(t)}
	if err := sw.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ProjectName)); err != nil {
		t.Errorf("Project.toml not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
		t.Errorf("Manifest.toml not written: %v", err)
	}

	// A second write with an invalid manifest must fail and leave the
	// previously-committed files untouched.
	bad := newManifest()
	bad.Entries[uuid.MustParse(idA)] = &Entry{
		UUID: uuid.MustParse(idA),
		Name: "A",
		Deps: map[string]uuid.UUID{"ghost": uuid.MustParse(idB)},
	}
	sw2 := &SafeWriter{Manifest: bad}
	if err := sw2.Write(dir); err == nil {
		t.Fatal("expected Write to fail for a manifest violating invariants")
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("reading surviving Manifest.toml: %v", err)
	}
	again, err := ReadManifest(raw)
	if err != nil {
		t.Fatalf("ReadManifest after failed second write: %v", err)
	}
	if len(again.Entries) != 2 {
		t.Errorf("Manifest.toml was corrupted by the failed write: got %d entries, want 2", len(again.Entries))
	}
}
