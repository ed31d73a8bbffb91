// Package manifest handles yaprak.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/yaprak-lang/yaprak/vm"
)

var log = commonlog.GetLogger("yaprak.manifest")

// FileName is the manifest file looked up in a project directory.
const FileName = "yaprak.toml"

// Manifest represents a yaprak.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Source       Source                `toml:"source"`
	Dependencies map[string]Dependency `toml:"dependencies"`
	Runtime      Runtime               `toml:"runtime"`
	Log          Log                   `toml:"log"`

	// Dir is the directory containing the yaprak.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// Source configures where `yükle` looks for modules.
type Source struct {
	Dirs []string `toml:"dirs"`
}

// Dependency is another Yaprak project on the local filesystem whose
// source directories join the module search path.
type Dependency struct {
	Path string `toml:"path"`
}

// Runtime configures the VM.
type Runtime struct {
	MaxCallDepth int `toml:"max-call-depth"`
}

// Log configures commonlog.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Defaults for keys left out of the file.
const (
	DefaultEntry    = "ana.yap"
	DefaultLogLevel = "warning"
)

// verbosities maps level names to commonlog verbosity.
var verbosities = map[string]int{
	"none":    -5,
	"error":   -3,
	"warning": -2,
	"notice":  -1,
	"info":    0,
	"debug":   1,
}

// Default returns the configuration used when no yaprak.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Project.Entry == "" {
		m.Project.Entry = DefaultEntry
	}
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"lib"}
	}
	if m.Runtime.MaxCallDepth <= 0 {
		m.Runtime.MaxCallDepth = vm.DefaultMaxCallDepth
	}
	if m.Log.Level == "" {
		m.Log.Level = DefaultLogLevel
	}
}

// Load parses a yaprak.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		if line, key, ok := unquotedKey(data); ok {
			return nil, fmt.Errorf("%s:%d: key %s must be quoted (\"%s\"): bare TOML keys are ASCII only: %w",
				path, line, key, key, err)
		}
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if _, ok := verbosities[m.Log.Level]; !ok {
		return nil, fmt.Errorf("%s: unknown log level %q", path, m.Log.Level)
	}
	for name, dep := range m.Dependencies {
		if dep.Path == "" {
			return nil, fmt.Errorf("%s: dependency %q has no path", path, name)
		}
	}

	log.Debugf("loaded %s: project %q, %d source dirs", path, m.Project.Name, len(m.Source.Dirs))
	return &m, nil
}

// unquotedKey finds the first bare key with non-ASCII letters, such as a
// Turkish dependency name written without quotes.
func unquotedKey(data []byte) (int, string, bool) {
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == '[' {
			continue
		}
		key, _, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || strings.ContainsAny(key, `"'`) {
			continue
		}
		for _, r := range key {
			if r > unicode.MaxASCII {
				return i + 1, key, true
			}
		}
	}
	return 0, "", false
}

// FindAndLoad walks up from startDir to find a yaprak.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// Verbosity returns the commonlog verbosity for the configured level.
func (m *Manifest) Verbosity() int {
	if v, ok := verbosities[m.Log.Level]; ok {
		return v
	}
	return verbosities[DefaultLogLevel]
}

// LogPath returns the log file path, or nil to log to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
