package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSearchPaths(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeManifest(t, app, `
[source]
dirs = ["lib"]

[dependencies]
zeta = { path = "../zeta" }
alfa = { path = "../alfa" }
`)
	// alfa has its own manifest and depends back on app.
	writeManifest(t, filepath.Join(root, "alfa"), `
[source]
dirs = ["src"]

[dependencies]
app = { path = "../app" }
`)
	// zeta is a bare directory of modules.
	if err := os.MkdirAll(filepath.Join(root, "zeta"), 0755); err != nil {
		t.Fatal(err)
	}

	m, err := Load(app)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	paths, err := m.SearchPaths()
	if err != nil {
		t.Fatalf("SearchPaths failed: %v", err)
	}

	root, _ = filepath.Abs(root)
	want := []string{
		filepath.Join(root, "app", "lib"),
		filepath.Join(root, "alfa", "src"),
		filepath.Join(root, "zeta"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("SearchPaths = %v, want %v", paths, want)
	}
}

func TestSearchPathsMissingDependency(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[dependencies]\nyok = { path = \"yok\" }\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	_, err = m.SearchPaths()
	if err == nil || !strings.Contains(err.Error(), "resolving yok") {
		t.Errorf("SearchPaths error = %v, want resolving yok", err)
	}
}

func TestSearchPathsDependencyIsFile(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[dependencies]\ntek = { path = \"tek.yap\" }\n")
	if err := os.WriteFile(filepath.Join(dir, "tek.yap"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := m.SearchPaths(); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("SearchPaths error = %v, want not a directory", err)
	}
}
