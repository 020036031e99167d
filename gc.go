package vpm

import (
	"os"
	"path/filepath"
	"time"

	"github.com/vellum-lang/vpm/internal/depot"
	"github.com/vellum-lang/vpm/internal/installer"
	"github.com/vellum-lang/vpm/internal/manifest"
)

func readManifestBytes(raw []byte) (*manifest.Manifest, error) {
	return manifest.ReadManifest(raw)
}

// GCReport summarizes a gc(delay) pass across every content-addressed
// store in the depot (spec.md §4.6).
type GCReport struct {
	Packages  *depot.GCResult
	Artifacts *depot.GCResult
}

// GC implements spec.md §4.4/§4.6's gc(delay): reads every environment
// manifest recorded under the depot's environments/ directory, unions
// their entries' tree hashes into a single reachable set, and sweeps
// packages/ and artifacts/ with that delay. Also coalesces the usage logs,
// matching spec.md §6's "GC is specified to compact usage logs".
func GC(d *depot.Depot, delay time.Duration, now time.Time) (*GCReport, error) {
	reachablePkgs, reachableArtifacts, err := reachableAcrossEnvironments(d)
	if err != nil {
		return nil, err
	}

	pkgResult, err := depot.CollectGarbage(d.PackagesDir(), reachablePkgs, delay, now, 2)
	if err != nil {
		return nil, wrapIO(err, "collecting packages")
	}
	artResult, err := depot.CollectGarbage(d.ArtifactsDir(), reachableArtifacts, delay, now, 1)
	if err != nil {
		return nil, wrapIO(err, "collecting artifacts")
	}

	// spec.md §4.6 step 5: once stale slugs are gone, reap the empty
	// packages/<name>/ and scratchspaces/<uuid>/ directories they (or an
	// interrupted install) left behind.
	if _, err := depot.SweepEmptyDirs(d.PackagesDir()); err != nil {
		return nil, wrapIO(err, "sweeping empty package name directories")
	}
	if _, err := depot.SweepEmptyDirs(d.ScratchspacesDir()); err != nil {
		return nil, wrapIO(err, "sweeping empty scratchspace directories")
	}

	if err := depot.CoalesceUsage(d.ManifestUsageLog()); err != nil {
		return nil, wrapIO(err, "coalescing manifest usage log")
	}
	if err := depot.CoalesceUsage(d.ArtifactUsageLog()); err != nil {
		return nil, wrapIO(err, "coalescing artifact usage log")
	}
	if err := depot.CoalesceUsage(d.ScratchUsageLog()); err != nil {
		return nil, wrapIO(err, "coalescing scratch usage log")
	}

	return &GCReport{Packages: pkgResult, Artifacts: artResult}, nil
}

// reachableAcrossEnvironments walks every Manifest.toml registered under
// the depot's environments/ directory and unions their entries' tree
// hashes, so gc never deletes a package still referenced by any
// environment on the system, not just the one currently loaded.
func reachableAcrossEnvironments(d *depot.Depot) (packages, artifacts map[string]bool, err error) {
	packages = make(map[string]bool)
	artifacts = make(map[string]bool)

	entries, statErr := os.ReadDir(d.EnvironmentsDir())
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return packages, artifacts, nil
		}
		return nil, nil, wrapIO(statErr, "listing environments")
	}

	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		raw, readErr := os.ReadFile(filepath.Join(d.EnvironmentsDir(), ent.Name(), "Manifest.toml"))
		if readErr != nil {
			continue // an environment whose manifest vanished contributes nothing
		}
		man, parseErr := readManifestBytes(raw)
		if parseErr != nil {
			continue
		}
		for _, e := range man.Entries {
			if e.TreeHash == nil {
				continue
			}
			dir, dirErr := d.PackageDir(e.Name, *e.TreeHash)
			if dirErr != nil {
				continue // can't resolve this entry's slug: contributes nothing
			}
			rel, relErr := filepath.Rel(d.PackagesDir(), dir)
			if relErr != nil {
				continue
			}
			packages[filepath.ToSlash(rel)] = true

			artifactsRaw, readErr := os.ReadFile(filepath.Join(dir, "Artifacts.toml"))
			if readErr != nil {
				continue
			}
			specs, parseErr := installer.ReadArtifactsToml(artifactsRaw)
			if parseErr != nil {
				continue
			}
			for _, s := range specs {
				artifacts[s.TreeHash] = true
			}
		}
	}
	return packages, artifacts, nil
}
