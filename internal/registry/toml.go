package registry

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

func readOptional(backend Backend, path string) ([]byte, bool, error) {
	raw, err := backend.ReadFile(path)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

// readPackageToml parses "<relPath>/Package.toml".
func readPackageToml(backend Backend, relPath string) (*PackageEntry, error) {
	raw, err := backend.ReadFile(relPath + "/Package.toml")
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s/Package.toml", relPath)
	}

	var doc struct {
		Name   string `toml:"name"`
		Repo   string `toml:"repo"`
		Subdir string `toml:"subdir"`
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s/Package.toml", relPath)
	}

	return &PackageEntry{Name: doc.Name, Repo: doc.Repo, Subdir: doc.Subdir}, nil
}

// readVersionsToml parses "<relPath>/Versions.toml": version -> {tree_hash, yanked}.
func readVersionsToml(backend Backend, relPath string) (map[version.Version]VersionInfo, error) {
	raw, err := backend.ReadFile(relPath + "/Versions.toml")
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s/Versions.toml", relPath)
	}

	var doc map[string]struct {
		GitTreeSHA1 string `toml:"git-tree-sha1"`
		Yanked      bool   `toml:"yanked"`
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s/Versions.toml", relPath)
	}

	out := make(map[version.Version]VersionInfo, len(doc))
	for vs, entry := range doc {
		v, err := version.Parse(vs)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/Versions.toml: bad version key %q", relPath, vs)
		}
		th, err := treehash.Parse(entry.GitTreeSHA1)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/Versions.toml: bad tree hash for %s", relPath, vs)
		}
		out[v] = VersionInfo{TreeHash: th, Yanked: entry.Yanked}
	}
	return out, nil
}

// readRangeTable parses a range-compressed table file (Compat.toml,
// Deps.toml, WeakCompat.toml, WeakDeps.toml): a TOML document whose
// top-level keys are version-range expressions ("1.2.0-1.5.0", "0", "2") and
// whose values are tables of name -> string (spec.md §4.2).
func readRangeTable(backend Backend, relPath, file string) (map[string]map[string]string, error) {
	raw, present, err := readOptional(backend, relPath+"/"+file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s/%s", relPath, file)
	}
	if !present {
		return nil, nil
	}

	var doc map[string]map[string]string
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s/%s", relPath, file)
	}
	return doc, nil
}

func parseUUIDTable(m map[string]string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(m))
	for name, raw := range m {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "bad uuid for dep %q", name)
		}
		out[name] = id
	}
	return out, nil
}

func parseSpecTable(m map[string]string) (map[string]version.VersionSpec, error) {
	out := make(map[string]version.VersionSpec, len(m))
	for name, raw := range m {
		spec, err := version.ParseSpec(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "bad compat spec for %q", name)
		}
		out[name] = spec
	}
	return out, nil
}
