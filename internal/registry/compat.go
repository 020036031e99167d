package registry

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// parseRangeKey parses the key of a range-compressed row: either a bare
// prefix ("0", "1.2") or a hyphenated window ("1.2.0-1.5.0"), per spec.md
// §4.2. Unlike version.ParseSpec atoms, these keys have no surrounding
// whitespace around the hyphen.
func parseRangeKey(key string) (version.VersionRange, error) {
	key = strings.TrimSpace(key)
	if idx := strings.Index(key, "-"); idx > 0 {
		spec, err := version.ParseSpec(key[:idx] + " - " + key[idx+1:])
		if err != nil {
			return version.VersionRange{}, err
		}
		if len(spec.Ranges) != 1 {
			return version.VersionRange{}, errors.Errorf("registry: malformed range key %q", key)
		}
		return spec.Ranges[0], nil
	}
	spec, err := version.ParseSpec(key)
	if err != nil {
		return version.VersionRange{}, err
	}
	if len(spec.Ranges) != 1 {
		return version.VersionRange{}, errors.Errorf("registry: malformed range key %q", key)
	}
	return spec.Ranges[0], nil
}

// expandRangeTable expands a Compat.toml/WeakCompat.toml-shaped file (name
// -> version spec string per row) into a per-version, per-name map,
// following spec.md §4.2 steps (a)-(d): for each range find the matching
// window of known versions, assign the row to every version in the window,
// and fail with ErrOverlappingCompat if two ranges disagree for the same
// (version, key).
func expandRangeTable(backend Backend, relPath, file string, known []version.Version) (map[version.Version]map[string]version.VersionSpec, error) {
	raw, err := readRangeTable(backend, relPath, file)
	if err != nil || raw == nil {
		return nil, err
	}

	out := make(map[version.Version]map[string]version.VersionSpec, len(known))
	for rangeKey, row := range raw {
		r, err := parseRangeKey(rangeKey)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/%s", relPath, file)
		}
		parsedRow, err := parseSpecTable(row)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/%s: row %q", relPath, file, rangeKey)
		}
		for _, v := range known {
			if !r.Contains(v) {
				continue
			}
			existing, ok := out[v]
			if !ok {
				existing = make(map[string]version.VersionSpec)
				out[v] = existing
			}
			for name, spec := range parsedRow {
				if prev, ok := existing[name]; ok && !prev.Equal(spec) {
					return nil, errors.Wrapf(&ErrOverlappingCompat{Key: name, Version: v}, "%s/%s", relPath, file)
				}
				existing[name] = spec
			}
		}
	}
	return out, nil
}

// expandDepsTable is expandRangeTable's counterpart for Deps.toml/
// WeakDeps.toml, whose rows map name -> UUID string instead of name ->
// version spec string.
func expandDepsTable(backend Backend, relPath, file string, known []version.Version) (map[version.Version]map[string]uuid.UUID, error) {
	raw, err := readRangeTable(backend, relPath, file)
	if err != nil || raw == nil {
		return nil, err
	}

	out := make(map[version.Version]map[string]uuid.UUID, len(known))
	for rangeKey, row := range raw {
		r, err := parseRangeKey(rangeKey)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/%s", relPath, file)
		}
		parsedRow, err := parseUUIDTable(row)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/%s: row %q", relPath, file, rangeKey)
		}
		for _, v := range known {
			if !r.Contains(v) {
				continue
			}
			existing, ok := out[v]
			if !ok {
				existing = make(map[string]uuid.UUID)
				out[v] = existing
			}
			for name, id := range parsedRow {
				if prev, ok := existing[name]; ok && prev != id {
					return nil, errors.Wrapf(&ErrOverlappingCompat{Key: name, Version: v}, "%s/%s", relPath, file)
				}
				existing[name] = id
			}
		}
	}
	return out, nil
}
