package registry

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/treehash"
)

// DirBackend reads a registry straight from a directory on disk.
type DirBackend struct {
	Root string
}

func (b DirBackend) ReadFile(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// TarballBackend serves a registry's files out of an in-memory path->bytes
// map decoded once from a tar archive, per spec.md §4.2: "A tarball-backed
// registry keeps its decompressed payload as an in-memory path -> bytes
// map". The archive is accompanied by a sidecar "<name>.toml" file giving
// its tree hash and path, matching spec.md's registry discovery contract.
type TarballBackend struct {
	files map[string][]byte
}

func (b *TarballBackend) ReadFile(relPath string) ([]byte, error) {
	data, ok := b.files[relPath]
	if !ok {
		return nil, &os.PathError{Op: "read", Path: relPath, Err: os.ErrNotExist}
	}
	return data, nil
}

// NewTarballBackend decodes files (already extracted from the archive by
// the installer's unpack stage, keyed by path relative to the archive
// root) into a TarballBackend.
func NewTarballBackend(files map[string][]byte) *TarballBackend {
	return &TarballBackend{files: files}
}

// TarballSidecar is the "<name>.toml" file accompanying a tarball-backed
// registry: its tree hash and the relative path of the archive.
type TarballSidecar struct {
	TreeHash treehash.Hash
	Path     string
}

// ReadTarballSidecar parses a sidecar file.
func ReadTarballSidecar(raw []byte) (*TarballSidecar, error) {
	var doc struct {
		GitTreeSHA1 string `toml:"git-tree-sha1"`
		Path        string `toml:"path"`
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing registry tarball sidecar")
	}
	th, err := treehash.Parse(doc.GitTreeSHA1)
	if err != nil {
		return nil, errors.Wrap(err, "registry tarball sidecar: bad tree hash")
	}
	return &TarballSidecar{TreeHash: th, Path: doc.Path}, nil
}
