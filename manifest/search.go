package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SearchPaths returns the module search path: the project's own source
// directories followed by those of its path dependencies, depth first in
// dependency name order. Each directory appears once, so dependency cycles
// terminate.
func (m *Manifest) SearchPaths() ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	if err := m.collect(&paths, seen, map[string]bool{}); err != nil {
		return nil, err
	}
	return paths, nil
}

func (m *Manifest) collect(paths *[]string, seen, visited map[string]bool) error {
	if visited[m.Dir] {
		return nil
	}
	visited[m.Dir] = true

	for _, p := range m.SourceDirPaths() {
		if !seen[p] {
			seen[p] = true
			*paths = append(*paths, p)
		}
	}

	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dep, err := m.resolve(name, m.Dependencies[name])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", name, err)
		}
		if err := dep.collect(paths, seen, visited); err != nil {
			return err
		}
	}
	return nil
}

// resolve loads a path dependency. A directory without its own yaprak.toml
// is itself the source directory.
func (m *Manifest) resolve(name string, dep Dependency) (*Manifest, error) {
	localPath := dep.Path
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(m.Dir, localPath)
	}
	localPath, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local dependency %q at %s is not a directory", name, localPath)
	}

	if _, err := os.Stat(filepath.Join(localPath, FileName)); err != nil {
		log.Debugf("dependency %s has no %s, using %s", name, FileName, localPath)
		return &Manifest{Dir: localPath, Source: Source{Dirs: []string{"."}}}, nil
	}
	return Load(localPath)
}
