package vpm

import (
	"testing"

	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", s, err)
	}
	return id
}

func TestCloneProjectDeepCopies(t *testing.T) {
	a := mustUUID(t, "11111111-1111-1111-1111-111111111111")
	spec, err := version.ParseSpec("1")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}

	orig := &manifest.Project{
		Name:     "root",
		Deps:     map[string]uuid.UUID{"A": a},
		WeakDeps: map[string]uuid.UUID{},
		Extras:   map[string]uuid.UUID{},
		Compat:   map[string]version.VersionSpec{"A": spec},
		Sources:  map[string]manifest.SourceSpec{},
		Targets:  map[string][]string{"test": {"A"}},
	}

	cp := cloneProject(orig)
	cp.Deps["B"] = mustUUID(t, "22222222-2222-2222-2222-222222222222")
	cp.Targets["test"][0] = "changed"

	if _, ok := orig.Deps["B"]; ok {
		t.Errorf("mutating clone's Deps leaked into original")
	}
	if orig.Targets["test"][0] != "A" {
		t.Errorf("mutating clone's Targets leaked into original: got %q", orig.Targets["test"][0])
	}
}

func TestCloneManifestDeepCopiesEntryDeps(t *testing.T) {
	a := mustUUID(t, "11111111-1111-1111-1111-111111111111")
	b := mustUUID(t, "22222222-2222-2222-2222-222222222222")

	orig := &manifest.Manifest{
		Format: manifest.CurrentFormat,
		Entries: map[uuid.UUID]*manifest.Entry{
			a: {UUID: a, Name: "A", Deps: map[string]uuid.UUID{"B": b}},
		},
	}

	cp := cloneManifest(orig)
	cp.Entries[a].Deps["C"] = mustUUID(t, "33333333-3333-3333-3333-333333333333")

	if len(orig.Entries[a].Deps) != 1 {
		t.Errorf("mutating clone's entry Deps leaked into original: %v", orig.Entries[a].Deps)
	}
	if cp.Entries[a] == orig.Entries[a] {
		t.Errorf("clone shares entry pointer with original")
	}
}

func TestReachableFromRootsPrunesUnreferenced(t *testing.T) {
	a := mustUUID(t, "11111111-1111-1111-1111-111111111111")
	b := mustUUID(t, "22222222-2222-2222-2222-222222222222")
	orphan := mustUUID(t, "33333333-3333-3333-3333-333333333333")

	proj := &manifest.Project{Deps: map[string]uuid.UUID{"A": a}}
	man := &manifest.Manifest{
		Entries: map[uuid.UUID]*manifest.Entry{
			a:      {UUID: a, Name: "A", Deps: map[string]uuid.UUID{"B": b}},
			b:      {UUID: b, Name: "B"},
			orphan: {UUID: orphan, Name: "Orphan"},
		},
	}

	pruned := prune(proj, man)
	if _, ok := pruned.Entries[a]; !ok {
		t.Errorf("expected direct dep A to survive pruning")
	}
	if _, ok := pruned.Entries[b]; !ok {
		t.Errorf("expected transitive dep B to survive pruning")
	}
	if _, ok := pruned.Entries[orphan]; ok {
		t.Errorf("expected unreferenced entry to be pruned")
	}
}

func TestRequirementsFromProjectJoinsCompat(t *testing.T) {
	a := mustUUID(t, "11111111-1111-1111-1111-111111111111")
	b := mustUUID(t, "22222222-2222-2222-2222-222222222222")
	spec, err := version.ParseSpec("1.2")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}

	proj := &manifest.Project{
		Deps:   map[string]uuid.UUID{"A": a, "B": b},
		Compat: map[string]version.VersionSpec{"A": spec},
	}

	reqs := requirementsFromProject(proj)
	if got := reqs[a]; got.String() != spec.String() {
		t.Errorf("A requirement = %v, want %v", got, spec)
	}
	if got := reqs[b]; got.String() != version.Any().String() {
		t.Errorf("B requirement (no compat row) = %v, want unbounded", got)
	}
}

func TestCeilingForLevels(t *testing.T) {
	cur := version.MustParse("1.2.3")

	fixed := ceilingFor(cur, LevelFixed)
	if !fixed.Ranges[0].Upper.Equal(cur) || !fixed.Ranges[0].UpperInclusive {
		t.Errorf("LevelFixed ceiling should admit only %v exactly, got %+v", cur, fixed)
	}

	patch := ceilingFor(cur, LevelPatch)
	wantPatchUpper := version.Version{Major: 1, Minor: 3}
	if !patch.Ranges[0].Upper.Equal(wantPatchUpper) {
		t.Errorf("LevelPatch ceiling upper = %v, want %v", patch.Ranges[0].Upper, wantPatchUpper)
	}

	minor := ceilingFor(cur, LevelMinor)
	wantMinorUpper := version.Version{Major: 2}
	if !minor.Ranges[0].Upper.Equal(wantMinorUpper) {
		t.Errorf("LevelMinor ceiling upper = %v, want %v", minor.Ranges[0].Upper, wantMinorUpper)
	}

	major := ceilingFor(cur, LevelMajor)
	if major.Ranges[0].Upper != nil {
		t.Errorf("LevelMajor ceiling should be unbounded above, got upper %v", major.Ranges[0].Upper)
	}
}

func TestErrorWrappersPassThroughNilAndPreserveCause(t *testing.T) {
	if wrapSpec(nil, "x") != nil {
		t.Errorf("wrapSpec(nil, ...) should return nil")
	}

	cause := errSentinel{}
	err := wrapRegistry(cause, "looking up package")
	var re *RegistryError
	if !asRegistryError(err, &re) {
		t.Fatalf("expected a *RegistryError, got %T", err)
	}
	if re.Unwrap() == nil {
		t.Errorf("expected RegistryError.Unwrap() to expose a cause")
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }

func asRegistryError(err error, target **RegistryError) bool {
	re, ok := err.(*RegistryError)
	if ok {
		*target = re
	}
	return ok
}
