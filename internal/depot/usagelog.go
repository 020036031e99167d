package depot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// UsageEntry is one recorded use of a path (spec.md §6: "path -> [{time =
// "<RFC3339>"}]").
type UsageEntry struct {
	Time time.Time
}

// UsageLog is path -> its recorded uses, oldest first.
type UsageLog map[string][]UsageEntry

type rawUsageLog map[string][]struct {
	Time string `toml:"time"`
}

func readUsageLog(raw []byte) (UsageLog, error) {
	if len(raw) == 0 {
		return UsageLog{}, nil
	}
	var ru rawUsageLog
	if err := toml.Unmarshal(raw, &ru); err != nil {
		return nil, errors.Wrap(err, "parsing usage log")
	}
	u := make(UsageLog, len(ru))
	for path, entries := range ru {
		for _, re := range entries {
			t, err := time.Parse(time.RFC3339, re.Time)
			if err != nil {
				return nil, errors.Wrapf(err, "usage log: %s: bad timestamp %q", path, re.Time)
			}
			u[path] = append(u[path], UsageEntry{Time: t})
		}
	}
	return u, nil
}

func (u UsageLog) marshal() ([]byte, error) {
	ru := make(rawUsageLog, len(u))
	for path, entries := range u {
		rows := make([]struct {
			Time string `toml:"time"`
		}, len(entries))
		for i, e := range entries {
			rows[i].Time = e.Time.UTC().Format(time.RFC3339)
		}
		ru[path] = rows
	}
	return toml.Marshal(ru)
}

// AppendUsage records a single use of key (a manifest path, artifact
// hash, or scratchspace path) at time t into the TOML usage log at
// logPath, guarded by a sibling ".lock" flock so concurrent environment
// operations across processes don't interleave writes (spec.md §5's
// "append-only with per-line atomicity" guarantee).
func AppendUsage(logPath, key string, t time.Time) error {
	lock := flock.NewFlock(logPath + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "locking usage log %s", logPath)
	}
	defer lock.Unlock()

	raw, err := os.ReadFile(logPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "reading usage log %s", logPath)
	}
	log, err := readUsageLog(raw)
	if err != nil {
		return err
	}
	log[key] = append(log[key], UsageEntry{Time: t})

	return writeUsageLogAtomic(logPath, log)
}

// CoalesceUsage collapses every path's history in the log at logPath down
// to its single most recent entry, the way GC is specified to compact
// usage logs (spec.md §6).
func CoalesceUsage(logPath string) error {
	lock := flock.NewFlock(logPath + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "locking usage log %s", logPath)
	}
	defer lock.Unlock()

	raw, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading usage log %s", logPath)
	}
	log, err := readUsageLog(raw)
	if err != nil {
		return err
	}
	for path, entries := range log {
		latest := entries[0].Time
		for _, e := range entries[1:] {
			if e.Time.After(latest) {
				latest = e.Time
			}
		}
		log[path] = []UsageEntry{{Time: latest}}
	}
	return writeUsageLogAtomic(logPath, log)
}

func writeUsageLogAtomic(logPath string, log UsageLog) error {
	raw, err := log.marshal()
	if err != nil {
		return errors.Wrap(err, "marshaling usage log")
	}
	tmp := logPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "writing usage log %s", logPath)
	}
	if err := os.Rename(tmp, logPath); err != nil {
		return errors.Wrapf(err, "committing usage log %s", logPath)
	}
	return nil
}

// ManifestUsageLog, ArtifactUsageLog, and ScratchUsageLog are the three
// standard log file paths under a depot's logs/ directory (spec.md §6).
func (d *Depot) ManifestUsageLog() string { return filepath.Join(d.LogsDir(), "manifest_usage.toml") }
func (d *Depot) ArtifactUsageLog() string { return filepath.Join(d.LogsDir(), "artifact_usage.toml") }
func (d *Depot) ScratchUsageLog() string  { return filepath.Join(d.LogsDir(), "scratch_usage.toml") }
