// Package adapter contains infrastructure adapters for the zk-mutant CLI.
package adapter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// ProjectLoader loads a Noir project descriptor from disk. It is an
// interface so the pipeline can be driven against fixture descriptors.
type ProjectLoader interface {
	// Load resolves the project containing path (the directory itself or
	// any path inside it) and enumerates its source files.
	Load(path m.Path) (*m.Project, error)
}

// nargoManifest mirrors the subset of Nargo.toml the driver cares about.
type nargoManifest struct {
	Package struct {
		Name            string `toml:"name"`
		CompilerVersion string `toml:"compiler_version"`
	} `toml:"package"`
}

// skippedDirs are directory base names never scanned for sources.
var skippedDirs = map[string]bool{
	".git":            true,
	"target":          true,
	"mutants.out":     true,
	"mutants.out.old": true,
}

// LocalProjectLoader is the filesystem-backed ProjectLoader.
type LocalProjectLoader struct{}

// NewLocalProjectLoader constructs a LocalProjectLoader.
func NewLocalProjectLoader() *LocalProjectLoader {
	return &LocalProjectLoader{}
}

// Load searches for Nargo.toml walking up from path, parses it, and
// enumerates the project's .nr files ordered by relative path.
func (l *LocalProjectLoader) Load(path m.Path) (*m.Project, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", m.ErrProjectLoad, path, err)
	}

	root, err := findProjectRoot(abs)
	if err != nil {
		return nil, err
	}

	manifest, err := readManifest(filepath.Join(root, "Nargo.toml"))
	if err != nil {
		return nil, err
	}

	sources, err := enumerateSources(root)
	if err != nil {
		return nil, err
	}

	return &m.Project{
		Root:            m.Path(root),
		Name:            manifest.Package.Name,
		CompilerVersion: manifest.Package.CompilerVersion,
		Sources:         sources,
	}, nil
}

// findProjectRoot walks up the directory tree looking for Nargo.toml.
func findProjectRoot(start string) (string, error) {
	dir := start

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "Nargo.toml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: Nargo.toml not found in any parent of %s", m.ErrProjectLoad, start)
		}

		dir = parent
	}
}

func readManifest(path string) (*nargoManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", m.ErrProjectLoad, path, err)
	}

	var manifest nargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", m.ErrProjectLoad, path, err)
	}

	return &manifest, nil
}

// enumerateSources walks root collecting .nr files. Symlinks are not
// followed so a link pointing outside the project cannot pull foreign
// files into the scan.
func enumerateSources(root string) ([]m.SourceFile, error) {
	var sources []m.SourceFile

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if path != root && skippedDirs[entry.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !strings.HasSuffix(entry.Name(), ".nr") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		sources = append(sources, m.SourceFile{
			RelPath: filepath.ToSlash(rel),
			AbsPath: path,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", m.ErrProjectLoad, root, err)
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].RelPath < sources[j].RelPath
	})

	return sources, nil
}
