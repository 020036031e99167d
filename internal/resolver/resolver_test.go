package resolver

import (
	"testing"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// fakeSource is an in-memory Source fixture for resolver tests.
type fakeSource struct {
	versions map[uuid.UUID][]version.Version
	deps     map[uuid.UUID]map[version.Version]map[uuid.UUID]version.VersionSpec
	yanked   map[uuid.UUID]map[version.Version]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		versions: make(map[uuid.UUID][]version.Version),
		deps:     make(map[uuid.UUID]map[version.Version]map[uuid.UUID]version.VersionSpec),
		yanked:   make(map[uuid.UUID]map[version.Version]bool),
	}
}

func (f *fakeSource) add(id uuid.UUID, v version.Version, deps map[uuid.UUID]version.VersionSpec) {
	f.versions[id] = append(f.versions[id], v)
	if f.deps[id] == nil {
		f.deps[id] = make(map[version.Version]map[uuid.UUID]version.VersionSpec)
	}
	f.deps[id][v] = deps
}

func (f *fakeSource) Versions(id uuid.UUID) ([]version.Version, error) {
	return f.versions[id], nil
}

func (f *fakeSource) Yanked(id uuid.UUID, v version.Version) bool {
	return f.yanked[id][v]
}

func (f *fakeSource) Deps(id uuid.UUID, v version.Version) (map[uuid.UUID]version.VersionSpec, error) {
	return f.deps[id][v], nil
}

var (
	anchorID = uuid.MustParse("1222c996-2000-5f04-935c-e9e9f3ed2e0b")
	pkgA     = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	pkgB     = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
)

func baseInput(src Source) Input {
	return Input{
		Requirements: map[uuid.UUID]version.VersionSpec{},
		Fixed:        map[uuid.UUID]FixedEntry{},
		Direct:       map[uuid.UUID]bool{},
		Previous:     map[uuid.UUID]version.Version{},
		Policy:       PolicyNone,
		HostVersion:  version.MustParse("1.9.0"),
		AnchorUUID:   anchorID,
		Source:       src,
	}
}

func TestResolveSimpleDependencyEdge(t *testing.T) {
	src := newFakeSource()
	src.add(pkgA, version.MustParse("1.0.0"), map[uuid.UUID]version.VersionSpec{
		pkgB: mustSpec(t, "^2.0.0"),
	})
	src.add(pkgA, version.MustParse("1.1.0"), map[uuid.UUID]version.VersionSpec{
		pkgB: mustSpec(t, "^2.0.0"),
	})
	src.add(pkgB, version.MustParse("2.0.0"), map[uuid.UUID]version.VersionSpec{})
	src.add(pkgB, version.MustParse("2.5.0"), map[uuid.UUID]version.VersionSpec{})
	src.add(pkgB, version.MustParse("3.0.0"), map[uuid.UUID]version.VersionSpec{})

	in := baseInput(src)
	in.Requirements[pkgA] = mustSpec(t, "^1.0.0")

	assignment, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := assignment[pkgA]; !got.Equal(version.MustParse("1.1.0")) {
		t.Errorf("pkgA = %s, want 1.1.0", got)
	}
	if got := assignment[pkgB]; !got.Equal(version.MustParse("2.5.0")) {
		t.Errorf("pkgB = %s, want 2.5.0 (3.0.0 excluded by ^2.0.0 from pkgA)", got)
	}
}

func TestResolveUnsatisfiable(t *testing.T) {
	src := newFakeSource()
	src.add(pkgA, version.MustParse("1.0.0"), map[uuid.UUID]version.VersionSpec{})

	in := baseInput(src)
	in.Requirements[pkgA] = mustSpec(t, "^2.0.0")

	_, err := Resolve(in)
	if err == nil {
		t.Fatal("expected Unsatisfiable, got nil")
	}
	if _, ok := err.(*Unsatisfiable); !ok {
		t.Errorf("err = %T, want *Unsatisfiable", err)
	}
}

func TestResolveAllPolicyPreservesPrevious(t *testing.T) {
	src := newFakeSource()
	src.add(pkgA, version.MustParse("1.0.0"), map[uuid.UUID]version.VersionSpec{})
	src.add(pkgA, version.MustParse("1.1.0"), map[uuid.UUID]version.VersionSpec{})

	in := baseInput(src)
	in.Requirements[pkgA] = mustSpec(t, "^1.0.0")
	in.Previous[pkgA] = version.MustParse("1.0.0")
	in.Policy = PolicyAll

	assignment, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := assignment[pkgA]; !got.Equal(version.MustParse("1.0.0")) {
		t.Errorf("pkgA = %s, want 1.0.0 (ALL policy must preserve)", got)
	}
}

func TestResolveTieredFallsBackWhenAllUnsatisfiable(t *testing.T) {
	src := newFakeSource()
	// Previous version 1.0.0 no longer exists in the registry (e.g. yanked
	// and removed); ALL can't be satisfied, TIERED should fall back.
	src.add(pkgA, version.MustParse("1.1.0"), map[uuid.UUID]version.VersionSpec{})

	in := baseInput(src)
	in.Requirements[pkgA] = mustSpec(t, "^1.0.0")
	in.Previous[pkgA] = version.MustParse("1.0.0")
	in.Policy = PolicyTiered

	assignment, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := assignment[pkgA]; !got.Equal(version.MustParse("1.1.0")) {
		t.Errorf("pkgA = %s, want 1.1.0 after TIERED fallback", got)
	}
}

func TestResolveAnchorGetsHostVersion(t *testing.T) {
	src := newFakeSource()
	src.add(pkgA, version.MustParse("1.0.0"), map[uuid.UUID]version.VersionSpec{
		anchorID: mustSpec(t, "^1.0.0"),
	})

	in := baseInput(src)
	in.Requirements[pkgA] = mustSpec(t, "^1.0.0")

	assignment, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := assignment[anchorID]; !got.Equal(version.MustParse("1.9.0")) {
		t.Errorf("anchor = %s, want host version 1.9.0", got)
	}
}

// TestResolveRejectsNonMonotonicIndependentPick reproduces spec.md §4.3
// step 5's completeness gap: pkgA's two surviving versions each require a
// disjoint range of pkgB, so picking each node's latest candidate
// independently (pkgA=3.0.0, pkgB=4.5.0) violates pkgA@3.0.0's edge even
// though both candidate sets individually survive propagation. The
// resolver must instead land on the one fully consistent combination.
func TestResolveRejectsNonMonotonicIndependentPick(t *testing.T) {
	src := newFakeSource()
	src.add(pkgA, version.MustParse("1.0.0"), map[uuid.UUID]version.VersionSpec{
		pkgB: mustSpec(t, "^4.0.0"),
	})
	src.add(pkgA, version.MustParse("3.0.0"), map[uuid.UUID]version.VersionSpec{
		pkgB: mustSpec(t, "^1.0.0"),
	})
	src.add(pkgB, version.MustParse("1.5.0"), map[uuid.UUID]version.VersionSpec{})
	src.add(pkgB, version.MustParse("4.5.0"), map[uuid.UUID]version.VersionSpec{})

	in := baseInput(src)
	in.Requirements[pkgA] = mustSpec(t, ">=0.0.0")

	assignment, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := assignment[pkgA]; !got.Equal(version.MustParse("3.0.0")) {
		t.Errorf("pkgA = %s, want 3.0.0 (its own edge to pkgB must hold)", got)
	}
	if got := assignment[pkgB]; !got.Equal(version.MustParse("1.5.0")) {
		t.Errorf("pkgB = %s, want 1.5.0, the only version satisfying pkgA@3.0.0's ^1.0.0 edge", got)
	}
}

func mustSpec(t *testing.T, s string) version.VersionSpec {
	t.Helper()
	spec, err := version.ParseSpec(s)
	if err != nil {
		t.Fatalf("ParseSpec(%q): %v", s, err)
	}
	return spec
}
