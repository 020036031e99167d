package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/vellum-lang/vpm/internal/manifest"
	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
)

func TestResolvePrecedenceIsPathThenRepoThenTreeHash(t *testing.T) {
	th := mustTreeHash(t)

	pathOnly := &manifest.Entry{Path: "/srv/dev/pkg"}
	ref, err := Resolve(pathOnly)
	if err != nil || ref.Kind != KindPath {
		t.Fatalf("path-only entry: got %+v, %v", ref, err)
	}

	repoOnly := &manifest.Entry{Repo: &manifest.RepoTrack{URL: "https://example.com/x.git"}}
	ref, err = Resolve(repoOnly)
	if err != nil || ref.Kind != KindRepo {
		t.Fatalf("repo-only entry: got %+v, %v", ref, err)
	}

	pathBeatsRepo := &manifest.Entry{Path: "/srv/dev/pkg", Repo: &manifest.RepoTrack{URL: "https://example.com/x.git"}}
	ref, err = Resolve(pathBeatsRepo)
	if err != nil || ref.Kind != KindPath {
		t.Fatalf("path should win over repo: got %+v, %v", ref, err)
	}

	treeOnly := &manifest.Entry{TreeHash: &th}
	ref, err = Resolve(treeOnly)
	if err != nil || ref.Kind != KindTreeHash {
		t.Fatalf("tree-hash-only entry: got %+v, %v", ref, err)
	}

	if _, err := Resolve(&manifest.Entry{}); err == nil {
		t.Fatal("expected an error for an entry with no path/repo/tree_hash")
	}
}

func mustTreeHash(t *testing.T) treehash.Hash {
	t.Helper()
	th, err := treehash.Parse("000000000000000000000000000000000000000a")
	if err != nil {
		t.Fatalf("treehash.Parse: %v", err)
	}
	return th
}

func TestUnpackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "pkg.tar.gz")
	writeTestTarball(t, tarPath, map[string]string{
		"a.txt":       "hello",
		"sub/b.txt":   "world",
	})

	destDir := filepath.Join(dir, "out")
	if err := Unpack(tarPath, destDir); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("a.txt = %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(destDir, "sub", "b.txt"))
	if err != nil || string(got) != "world" {
		t.Fatalf("sub/b.txt = %q, %v", got, err)
	}
}

func writeTestTarball(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating tarball: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing tar content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
}

func TestRunQueueReportsPerTaskResults(t *testing.T) {
	entries := []*manifest.Entry{
		{UUID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "A"},
		{UUID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "B"},
	}
	tasks := []Task{
		{Entry: entries[0], Run: func(e *manifest.Entry) error { return nil }},
		{Entry: entries[1], Run: func(e *manifest.Entry) error { return bytes.ErrTooLarge }},
	}

	results := RunQueue(tasks, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("expected task A to succeed, got %v", results[0].Err)
	}
	failed := FailedResults(results)
	if len(failed) != 1 || failed[0].Entry.Name != "B" {
		t.Errorf("expected exactly B to fail, got %+v", failed)
	}
}

func TestSupportsSymlinksProbe(t *testing.T) {
	dir := t.TempDir()
	// Just confirm the probe runs and leaves no residue, regardless of the
	// underlying filesystem's actual symlink support.
	_ = SupportsSymlinks(dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected probe to clean up after itself, found %v", entries)
	}
}
