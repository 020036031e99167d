package manifest

import (
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/treehash"
	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// ManifestName is the standard on-disk file name for a manifest (spec.md §3).
const ManifestName = "Manifest.toml"

// CurrentFormat is the format version stamped into every manifest this
// package writes; a v1.0 manifest lacking that marker is auto-upgraded on
// first write (spec.md §3).
const CurrentFormat = "2.0"

// RepoTrack identifies a repo-tracked entry's clone location.
type RepoTrack struct {
	URL    string
	Rev    string
	Subdir string
}

// Entry is a single package's resolved state (spec.md §3 "ManifestEntry").
type Entry struct {
	UUID uuid.UUID
	Name string

	Version  *version.Version
	TreeHash *treehash.Hash
	Path     string
	Repo     *RepoTrack

	Pinned bool

	Deps       map[string]uuid.UUID
	Extensions map[string][]string
}

// Tracking reports how an entry locates its source: exactly one of these is
// expected to be set for a non-stdlib entry (spec.md §3 invariant), except
// for pinned entries, whose identifier is left untouched regardless.
func (e *Entry) Tracking() string {
	switch {
	case e.Path != "":
		return "path"
	case e.Repo != nil:
		return "repo"
	case e.TreeHash != nil:
		return "tree_hash"
	default:
		return ""
	}
}

// Manifest is the resolver-produced, UUID-keyed output (spec.md §3
// "Manifest"): map UUID -> ManifestEntry plus a format version and a
// host-language-version marker.
type Manifest struct {
	Format      string
	HostVersion version.Version
	Entries     map[uuid.UUID]*Entry
}

func newManifest() *Manifest {
	return &Manifest{Format: CurrentFormat, Entries: make(map[uuid.UUID]*Entry)}
}

type rawEntry struct {
	UUID        string              `toml:"uuid"`
	Version     string              `toml:"version,omitempty"`
	GitTreeSHA1 string              `toml:"git-tree-sha1,omitempty"`
	Path        string              `toml:"path,omitempty"`
	RepoURL     string              `toml:"repo-url,omitempty"`
	RepoRev     string              `toml:"repo-rev,omitempty"`
	RepoSubdir  string              `toml:"repo-subdir,omitempty"`
	Pinned      bool                `toml:"pinned,omitempty"`
	Deps        map[string]string   `toml:"deps,omitempty"`
	Extensions  map[string][]string `toml:"extensions,omitempty"`
}

// ReadManifest parses raw TOML bytes into a Manifest. A document lacking
// manifest_format/julia_version markers is treated as the legacy v1.0 shape
// and read with Format "1.0"; MarshalTOML always writes CurrentFormat, so
// it carries the new markers the next time it is written.
func ReadManifest(raw []byte) (*Manifest, error) {
	tree, err := toml.LoadBytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing Manifest.toml")
	}

	m := newManifest()
	if v, ok := tree.Get("manifest_format").(string); ok && v != "" {
		m.Format = v
	} else {
		m.Format = "1.0"
	}
	if v, ok := tree.Get("julia_version").(string); ok && v != "" {
		hv, err := version.Parse(v)
		if err != nil {
			return nil, errors.Wrap(err, "Manifest.toml: bad julia_version")
		}
		m.HostVersion = hv
	}

	for _, name := range tree.Keys() {
		if name == "manifest_format" || name == "julia_version" {
			continue
		}
		sub, ok := tree.Get(name).(*toml.Tree)
		if !ok {
			continue
		}
		var re rawEntry
		buf := []byte(sub.String())
		if err := toml.Unmarshal(buf, &re); err != nil {
			return nil, errors.Wrapf(err, "Manifest.toml: %s", name)
		}

		id, err := uuid.Parse(re.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "Manifest.toml: %s.uuid", name)
		}

		e := &Entry{UUID: id, Name: name, Pinned: re.Pinned}
		if re.Version != "" {
			v, err := version.Parse(re.Version)
			if err != nil {
				return nil, errors.Wrapf(err, "Manifest.toml: %s.version", name)
			}
			e.Version = &v
		}
		if re.GitTreeSHA1 != "" {
			th, err := treehash.Parse(re.GitTreeSHA1)
			if err != nil {
				return nil, errors.Wrapf(err, "Manifest.toml: %s.git-tree-sha1", name)
			}
			e.TreeHash = &th
		}
		e.Path = re.Path
		if re.RepoURL != "" {
			e.Repo = &RepoTrack{URL: re.RepoURL, Rev: re.RepoRev, Subdir: re.RepoSubdir}
		}
		e.Deps = make(map[string]uuid.UUID, len(re.Deps))
		for depName, depRaw := range re.Deps {
			depID, err := uuid.Parse(depRaw)
			if err != nil {
				return nil, errors.Wrapf(err, "Manifest.toml: %s.deps.%s", name, depName)
			}
			e.Deps[depName] = depID
		}
		e.Extensions = re.Extensions

		if err := validateTracking(e); err != nil {
			return nil, err
		}
		m.Entries[id] = e
	}

	if err := checkInvariants(m); err != nil {
		return nil, err
	}
	return m, nil
}

func validateTracking(e *Entry) error {
	if e.Pinned {
		return nil
	}
	n := 0
	if e.TreeHash != nil {
		n++
	}
	if e.Path != "" {
		n++
	}
	if e.Repo != nil {
		n++
	}
	if n > 1 {
		return errors.Errorf("manifest entry %s: more than one of tree_hash/path/repo set", e.Name)
	}
	return nil
}

// checkInvariants enforces spec.md §3's cross-entry invariants: transitive
// dep closure is complete, no dangling name->UUID edges, and no two entries
// share a name.
func checkInvariants(m *Manifest) error {
	names := make(map[string]uuid.UUID, len(m.Entries))
	for id, e := range m.Entries {
		if prev, ok := names[e.Name]; ok && prev != id {
			return errors.Errorf("manifest: name %q claimed by both %s and %s", e.Name, prev, id)
		}
		names[e.Name] = id
	}
	for _, e := range m.Entries {
		for depName, depID := range e.Deps {
			if _, ok := m.Entries[depID]; !ok {
				return errors.Errorf("manifest: %s depends on %s (%s), which is not in the manifest", e.Name, depName, depID)
			}
		}
	}
	return nil
}

// MarshalTOML renders the manifest to TOML, stamping manifest_format and
// julia_version and sorting entries by name for a stable diff.
func (m *Manifest) MarshalTOML() ([]byte, error) {
	if err := checkInvariants(m); err != nil {
		return nil, err
	}

	tree, err := toml.TreeFromMap(map[string]interface{}{
		"manifest_format": CurrentFormat,
		"julia_version":   m.HostVersion.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "building Manifest.toml tree")
	}

	names := make([]string, 0, len(m.Entries))
	byName := make(map[string]*Entry, len(m.Entries))
	for _, e := range m.Entries {
		names = append(names, e.Name)
		byName[e.Name] = e
	}
	sort.Strings(names)

	for _, name := range names {
		e := byName[name]
		re := rawEntry{UUID: e.UUID.String(), Pinned: e.Pinned, Extensions: e.Extensions}
		if e.Version != nil {
			re.Version = e.Version.String()
		}
		if e.TreeHash != nil {
			re.GitTreeSHA1 = e.TreeHash.String()
		}
		re.Path = e.Path
		if e.Repo != nil {
			re.RepoURL, re.RepoRev, re.RepoSubdir = e.Repo.URL, e.Repo.Rev, e.Repo.Subdir
		}
		re.Deps = make(map[string]string, len(e.Deps))
		for depName, depID := range e.Deps {
			re.Deps[depName] = depID.String()
		}

		entryMap := toMapEntry(re)
		sub, err := toml.TreeFromMap(entryMap)
		if err != nil {
			return nil, errors.Wrapf(err, "building Manifest.toml entry %s", name)
		}
		tree.Set(name, sub)
	}

	return []byte(tree.String()), nil
}

func toMapEntry(re rawEntry) map[string]interface{} {
	raw, err := toml.Marshal(re)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := toml.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}
