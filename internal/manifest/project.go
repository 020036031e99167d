// Package manifest implements spec.md §3/§4.4's two on-disk file kinds — the
// user-authored Project and the resolver-produced Manifest — plus the
// atomic-write transaction wrapping both, adapted from golang-dep's
// manifest.go/lock.go raw/public struct split and its SafeWriter commit
// protocol in txn_writer.go.
package manifest

import (
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

// ProjectName is the standard on-disk file name for a project (spec.md §3).
const ProjectName = "Project.toml"

// SourceSpec overrides registry lookup for a single dependency name: either
// a local path, or a repo URL plus optional revision/subdir (spec.md §3
// "sources").
type SourceSpec struct {
	Path     string
	RepoURL  string
	RepoRev  string
	RepoSubdir string
}

// Project is the user-authored dependency declaration (spec.md §3
// "Project"). Unknown top-level keys encountered on read are preserved
// verbatim and re-emitted on write, matching the teacher's practice of
// never silently dropping data a human hand-edited.
type Project struct {
	Name    string
	UUID    uuid.UUID
	Version version.Version
	HasSelf bool // true when name or uuid was present on read

	Deps     map[string]uuid.UUID
	WeakDeps map[string]uuid.UUID
	Extras   map[string]uuid.UUID
	Compat   map[string]version.VersionSpec
	Sources  map[string]SourceSpec
	Targets  map[string][]string

	unknown map[string]interface{}
}

func newProject() *Project {
	return &Project{
		Deps:     make(map[string]uuid.UUID),
		WeakDeps: make(map[string]uuid.UUID),
		Extras:   make(map[string]uuid.UUID),
		Compat:   make(map[string]version.VersionSpec),
		Sources:  make(map[string]SourceSpec),
		Targets:  make(map[string][]string),
		unknown:  make(map[string]interface{}),
	}
}

type rawSourceSpec struct {
	Path   string `toml:"path,omitempty"`
	URL    string `toml:"url,omitempty"`
	Rev    string `toml:"rev,omitempty"`
	Subdir string `toml:"subdir,omitempty"`
}

type rawProject struct {
	Name     string                   `toml:"name,omitempty"`
	UUID     string                   `toml:"uuid,omitempty"`
	Version  string                   `toml:"version,omitempty"`
	Deps     map[string]string        `toml:"deps,omitempty"`
	WeakDeps map[string]string        `toml:"weakdeps,omitempty"`
	Extras   map[string]string        `toml:"extras,omitempty"`
	Compat   map[string]string        `toml:"compat,omitempty"`
	Sources  map[string]rawSourceSpec `toml:"sources,omitempty"`
	Targets  map[string][]string      `toml:"targets,omitempty"`
}

// ReadProject parses raw TOML bytes into a Project.
func ReadProject(raw []byte) (*Project, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing Project.toml")
	}

	var rp rawProject
	if err := toml.Unmarshal(raw, &rp); err != nil {
		return nil, errors.Wrap(err, "parsing Project.toml")
	}

	p := newProject()
	for _, known := range []string{"name", "uuid", "version", "deps", "weakdeps", "extras", "compat", "sources", "targets"} {
		delete(doc, known)
	}
	p.unknown = doc

	if rp.Name != "" || rp.UUID != "" {
		p.Name = rp.Name
		p.HasSelf = true
		if rp.UUID != "" {
			id, err := uuid.Parse(rp.UUID)
			if err != nil {
				return nil, errors.Wrap(err, "Project.toml: bad uuid")
			}
			p.UUID = id
		}
		if rp.Version != "" {
			v, err := version.Parse(rp.Version)
			if err != nil {
				return nil, errors.Wrap(err, "Project.toml: bad version")
			}
			p.Version = v
		}
	}

	for name, raw := range rp.Deps {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "Project.toml: deps.%s", name)
		}
		p.Deps[name] = id
	}
	for name, raw := range rp.WeakDeps {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "Project.toml: weakdeps.%s", name)
		}
		p.WeakDeps[name] = id
	}
	for name, raw := range rp.Extras {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "Project.toml: extras.%s", name)
		}
		p.Extras[name] = id
	}
	for name, raw := range rp.Compat {
		spec, err := version.ParseSpec(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "Project.toml: compat.%s", name)
		}
		p.Compat[name] = spec
	}
	for name, rs := range rp.Sources {
		p.Sources[name] = SourceSpec{Path: rs.Path, RepoURL: rs.URL, RepoRev: rs.Rev, RepoSubdir: rs.Subdir}
	}
	for t, names := range rp.Targets {
		p.Targets[t] = names
	}

	return p, nil
}

// MarshalTOML renders the project back to TOML, preserving any unknown
// top-level keys seen on read.
func (p *Project) MarshalTOML() ([]byte, error) {
	rp := rawProject{
		Deps:     make(map[string]string, len(p.Deps)),
		WeakDeps: make(map[string]string, len(p.WeakDeps)),
		Extras:   make(map[string]string, len(p.Extras)),
		Compat:   make(map[string]string, len(p.Compat)),
		Sources:  make(map[string]rawSourceSpec, len(p.Sources)),
		Targets:  p.Targets,
	}
	if p.HasSelf {
		rp.Name = p.Name
		rp.UUID = p.UUID.String()
		rp.Version = p.Version.String()
	}
	for name, id := range p.Deps {
		rp.Deps[name] = id.String()
	}
	for name, id := range p.WeakDeps {
		rp.WeakDeps[name] = id.String()
	}
	for name, id := range p.Extras {
		rp.Extras[name] = id.String()
	}
	for name, spec := range p.Compat {
		rp.Compat[name] = spec.String()
	}
	for name, ss := range p.Sources {
		rp.Sources[name] = rawSourceSpec{Path: ss.Path, URL: ss.RepoURL, Rev: ss.RepoRev, Subdir: ss.RepoSubdir}
	}

	tree, err := toml.TreeFromMap(toMap(rp))
	if err != nil {
		return nil, errors.Wrap(err, "building Project.toml tree")
	}
	for k, v := range p.unknown {
		tree.Set(k, v)
	}
	return []byte(tree.String()), nil
}

// toMap round-trips rp through toml's marshal/unmarshal-to-map so that its
// `omitempty`-tagged zero fields are dropped the same way a direct
// toml.Marshal of rp would, while still letting us splice in unknown keys
// via Tree.Set afterward.
func toMap(rp rawProject) map[string]interface{} {
	raw, err := toml.Marshal(rp)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := toml.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}
