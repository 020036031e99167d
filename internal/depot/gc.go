package depot

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const orphanRecordName = "orphaned.toml"

type rawOrphanRecord map[string]string // slug key -> RFC3339 "first seen orphaned"

// GCResult reports what a CollectGarbage pass did, for status/verbose
// reporting by the gc op.
type GCResult struct {
	Deleted  []string // slug keys removed this pass
	Orphaned []string // slug keys newly marked orphaned this pass, not yet past delay
}

// CollectGarbage implements spec.md §4.6's collect-delay algorithm over a
// content-addressed directory tree rooted at dir: depth names how many
// path components identify one collectible entry (1 for artifacts/<hash>,
// 2 for packages/<name>/<slug>). Any entry at that depth absent from
// reachable is orphaned; an orphaned entry is deleted once it has been
// continuously orphaned for at least delay. An entry that becomes
// reachable again before its delay elapses has its orphan clock cleared
// (testable property: gc(delay=∞) never deletes a reachable path, since
// unreachable entries are never eligible at all when delay is unbounded).
// Deleting a packages/<name>/<slug> entry also removes its sidecar
// "<slug>.hash" marker; the now-possibly-empty packages/<name> directory
// itself is left for SweepEmptyDirs to reap.
func CollectGarbage(dir string, reachable map[string]bool, delay time.Duration, now time.Time, depth int) (*GCResult, error) {
	entries, err := listDirsAtDepth(dir, depth)
	if err != nil {
		return nil, err
	}

	recordPath := filepath.Join(dir, orphanRecordName)
	record, err := readOrphanRecord(recordPath)
	if err != nil {
		return nil, err
	}

	result := &GCResult{}
	next := make(rawOrphanRecord, len(record))

	for _, key := range entries {
		if reachable[key] {
			continue // reachable: drop any stale orphan-clock entry by omission
		}

		since, wasOrphaned := record[key]
		var sinceTime time.Time
		if wasOrphaned {
			sinceTime, err = time.Parse(time.RFC3339, since)
			if err != nil {
				return nil, errors.Wrapf(err, "orphan record: %s: bad timestamp", key)
			}
		} else {
			sinceTime = now
		}

		if now.Sub(sinceTime) >= delay {
			full := filepath.Join(dir, key)
			if err := os.RemoveAll(full); err != nil {
				return nil, errors.Wrapf(err, "removing orphaned %s", key)
			}
			os.Remove(full + slugMarkerSuffix) // sidecar marker, if any; absence is fine
			result.Deleted = append(result.Deleted, key)
			continue
		}

		next[key] = sinceTime.UTC().Format(time.RFC3339)
		if !wasOrphaned {
			result.Orphaned = append(result.Orphaned, key)
		}
	}

	return result, writeOrphanRecord(recordPath, next)
}

// listDirsAtDepth returns the slash-joined relative paths of every
// directory exactly depth path components below dir, not descending past
// depth and ignoring non-directory entries (sidecar markers, the orphan
// record) encountered along the way.
func listDirsAtDepth(dir string, depth int) ([]string, error) {
	var names []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == dir {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			relSlash := filepath.ToSlash(rel)
			relDepth := strings.Count(relSlash, "/") + 1

			if !de.IsDir() {
				return nil
			}
			if relDepth == depth {
				names = append(names, relSlash)
				return filepath.SkipDir
			}
			if relDepth > depth {
				return filepath.SkipDir
			}
			return nil // shallower than depth: descend further
		},
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "walking %s", dir)
	}
	return names, nil
}

// SweepEmptyDirs removes every directory under dir (not dir itself) left
// empty once its content-addressed children are gone: packages/<name>/
// once its last slug has been collected, and scratchspaces/<uuid>/ left
// behind by an interrupted install. Removal is bottom-up in a single
// walk, so a parent that becomes empty only after its child is reaped in
// this same pass is still collected.
func SweepEmptyDirs(dir string) ([]string, error) {
	var removed []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback:             func(path string, de *godirwalk.Dirent) error { return nil },
		PostChildrenCallback: func(path string, de *godirwalk.Dirent) error {
			if path == dir {
				return nil
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}
			if len(entries) == 0 {
				if err := os.Remove(path); err != nil {
					return errors.Wrapf(err, "removing empty dir %s", path)
				}
				removed = append(removed, path)
			}
			return nil
		},
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "sweeping empty dirs under %s", dir)
	}
	return removed, nil
}

func readOrphanRecord(path string) (rawOrphanRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rawOrphanRecord{}, nil
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var r rawOrphanRecord
	if err := toml.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return r, nil
}

func writeOrphanRecord(path string, r rawOrphanRecord) error {
	raw, err := toml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshaling orphan record")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(os.Rename(tmp, path), "committing %s", path)
}
