package registry

import (
	"testing"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

func testSource(t *testing.T) *ResolverSource {
	t.Helper()
	idx := testIndex(t)
	return &ResolverSource{Layered: &Layered{Indexes: []*Index{idx}}}
}

func TestResolverSourceVersionsAndDeps(t *testing.T) {
	src := testSource(t)
	id := uuid.MustParse(exampleUUID)

	vs, err := src.Versions(id)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(vs) != 3 {
		t.Fatalf("len(Versions) = %d, want 3", len(vs))
	}

	deps, err := src.Deps(id, version.MustParse("0.6.0"))
	if err != nil {
		t.Fatalf("Deps: %v", err)
	}
	if _, ok := deps[AnchorUUID]; !ok {
		t.Errorf("expected Deps to carry the implicit anchor edge")
	}

	if src.Yanked(id, version.MustParse("0.6.0")) {
		t.Errorf("expected 0.6.0 to not be yanked")
	}
}

func TestResolverSourceNameAndRepoLookups(t *testing.T) {
	src := testSource(t)
	id := uuid.MustParse(exampleUUID)

	if got := src.NameOf(id); got != "Example" {
		t.Errorf("NameOf = %q, want Example", got)
	}

	repo, _, err := src.RepoOf(id)
	if err != nil {
		t.Fatalf("RepoOf: %v", err)
	}
	if repo != "https://example.test/Example.git" {
		t.Errorf("RepoOf = %q", repo)
	}

	hash, err := src.TreeHashOf(id, version.MustParse("0.5.0"))
	if err != nil {
		t.Fatalf("TreeHashOf: %v", err)
	}
	if hash == "" {
		t.Errorf("expected a non-empty tree hash")
	}
}

func TestResolverSourceUnknownUUIDErrors(t *testing.T) {
	src := testSource(t)
	unknown := uuid.MustParse("00000000-0000-0000-0000-000000000000")

	if _, err := src.Versions(unknown); err == nil {
		t.Errorf("expected Versions to error on an unknown uuid")
	}
	if _, err := src.Deps(unknown, version.MustParse("0.1.0")); err == nil {
		t.Errorf("expected Deps to error on an unknown uuid")
	}
}
