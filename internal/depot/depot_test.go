package depot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenCreatesStandardLayout(t *testing.T) {
	root := t.TempDir()
	d, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, dir := range []string{d.PackagesDir(), d.ArtifactsDir(), d.ClonesDir(), d.ScratchspacesDir(), d.LogsDir(), d.RegistriesDir(), d.EnvironmentsDir()} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestAppendAndCoalesceUsage(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(root, "manifest_usage.toml")

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	if err := AppendUsage(logPath, "/proj/Manifest.toml", t0); err != nil {
		t.Fatalf("AppendUsage: %v", err)
	}
	if err := AppendUsage(logPath, "/proj/Manifest.toml", t1); err != nil {
		t.Fatalf("AppendUsage: %v", err)
	}

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	log, err := readUsageLog(raw)
	if err != nil {
		t.Fatalf("readUsageLog: %v", err)
	}
	if len(log["/proj/Manifest.toml"]) != 2 {
		t.Fatalf("expected 2 entries before coalesce, got %d", len(log["/proj/Manifest.toml"]))
	}

	if err := CoalesceUsage(logPath); err != nil {
		t.Fatalf("CoalesceUsage: %v", err)
	}
	raw, err = os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log after coalesce: %v", err)
	}
	log, err = readUsageLog(raw)
	if err != nil {
		t.Fatalf("readUsageLog after coalesce: %v", err)
	}
	entries := log["/proj/Manifest.toml"]
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after coalesce, got %d", len(entries))
	}
	if !entries[0].Time.Equal(t1) {
		t.Errorf("coalesced entry = %s, want latest %s", entries[0].Time, t1)
	}
}

func TestGCSafetyNeverRemovesReachableWithInfiniteDelay(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "keep-me"))
	mustMkdir(t, filepath.Join(root, "drop-me"))

	reachable := map[string]bool{"keep-me": true}
	result, err := CollectGarbage(root, reachable, time.Duration(1<<62), time.Now(), 1)
	if err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
	if len(result.Deleted) != 0 {
		t.Errorf("expected no deletions with an effectively-infinite delay, got %v", result.Deleted)
	}
	if _, err := os.Stat(filepath.Join(root, "keep-me")); err != nil {
		t.Error("reachable directory was removed")
	}
}

func TestGCDelayMovesThenDeletes(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "orphan"))

	day := 24 * time.Hour
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// rm; gc(delay=7d): not yet past the grace period, moved to orphaned.
	result, err := CollectGarbage(root, map[string]bool{}, 7*day, t0, 1)
	if err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
	if len(result.Deleted) != 0 || len(result.Orphaned) != 1 {
		t.Fatalf("expected orphaning not deletion on first pass, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(root, "orphan")); err != nil {
		t.Fatal("orphaned directory should still exist before its delay elapses")
	}

	// 8 days later, gc(delay=0) deletes it.
	result, err = CollectGarbage(root, map[string]bool{}, 0, t0.Add(8*day), 1)
	if err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != "orphan" {
		t.Fatalf("expected orphan to be deleted on second pass, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(root, "orphan")); !os.IsNotExist(err) {
		t.Error("expected orphan directory to be removed from disk")
	}
}

func TestGCImmediateDeleteWhenDelayZero(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "orphan"))

	result, err := CollectGarbage(root, map[string]bool{}, 0, time.Now(), 1)
	if err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
	if len(result.Deleted) != 1 {
		t.Fatalf("expected immediate deletion with delay=0, got %+v", result)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
