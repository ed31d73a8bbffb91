package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunScript(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ana.yap", "fonk selam(ad):\n    döndür 'merhaba ' + ad\ngç::satıryaz(selam('dünya'))\n")
	code, stdout, stderr := runCLI(t, "", path)
	assert.Equal(t, 0, code, stderr)
	assert.Equal(t, "merhaba dünya\n", stdout)
	assert.Empty(t, stderr)
}

func TestRunScriptReadsStdin(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ana.yap", "ad = gç::satıroku()\ngç::satıryaz('selam ' + ad)\n")
	code, stdout, _ := runCLI(t, "Ayşe\n", path)
	assert.Equal(t, 0, code)
	assert.Equal(t, "selam Ayşe\n", stdout)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"compile error", "x = c\n", "undefined: c"},
		{"syntax error", "fonk f(:\n", "error: "},
		{"runtime error", "l = [1]\nl[doğru]\n", "error: line 2:"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, dir, string(rune('a'+i))+".yap", tt.source)
			code, _, stderr := runCLI(t, "", path)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}

	code, _, stderr := runCLI(t, "", filepath.Join(dir, "yok.yap"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: ")
}

func TestRunUsageErrors(t *testing.T) {
	code, _, _ := runCLI(t, "", "a.yap", "b.yap")
	assert.Equal(t, 2, code)

	code, _, stderr := runCLI(t, "", "-bilinmeyen")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: yaprak")

	code, _, _ = runCLI(t, "", "-h")
	assert.Equal(t, 0, code)
}

func TestRunPrintsWarnings(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ana.yap", "fonk f(a):\n    b = a\n    döndür a\nf(1)\n")
	code, _, stderr := runCLI(t, "", path)
	assert.Equal(t, 0, code)
	assert.Equal(t, "warning: "+path+":2:5: b is assigned but never used\n", stderr)
}

func TestCompileAndRunImage(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ana.yap", "l = [1, 2, 3]\ngç::satıryaz(json::yazıya(l))\n")
	image := filepath.Join(dir, "ana"+ImageExt)

	code, stdout, stderr := runCLI(t, "", "-c", image, path)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	code, stdout, stderr = runCLI(t, "", image)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "[1,2,3]\n", stdout)
}

func TestDisassemble(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ana.yap", "fonk f(x): döndür x\ngç::satıryaz(f(1))\n")
	code, stdout, _ := runCLI(t, "", "-d", path)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "; fonk f(x)")
	assert.Contains(t, stdout, "HALT")
	assert.NotContains(t, stdout, "\n1\n")
}

func TestProfileFlag(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ana.yap", "fonk f(x): döndür x + 1\ni = 0\ndöngü i < 3:\n    i = f(i)\n")
	code, _, stderr := runCLI(t, "", "-p", path)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "calls")
	assert.Contains(t, stderr, "3        f\n")
}

func TestRunManifestEntry(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "yaprak.toml", "[project]\nentry = \"başla.yap\"\n[source]\ndirs = [\"kitaplık\"]\n")
	writeScript(t, dir, "kitaplık/hesap.yap", "fonk üç(): döndür 3\n")
	writeScript(t, dir, "başla.yap", "yükle hesap\ngç::satıryaz(hesap::üç())\n")
	chdir(t, dir)

	code, stdout, stderr := runCLI(t, "")
	assert.Equal(t, 0, code, stderr)
	assert.Equal(t, "3\n", stdout)
}

func TestREPL(t *testing.T) {
	chdir(t, t.TempDir())
	input := strings.Join([]string{
		"1 + 2",
		"fonk iki_kat(x):",
		"    döndür x * 2",
		"",
		"iki_kat(4)",
		"x = c",
		":bilinmeyen",
		"iki_kat(5)",
		"çık",
	}, "\n")

	code, stdout, stderr := runCLI(t, input, "-i")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Yaprak REPL")
	assert.Contains(t, stdout, ">> 3\n")
	assert.Contains(t, stdout, ">> 8\n")
	assert.Contains(t, stdout, ">> 10\n")
	assert.Contains(t, stdout, "Unknown command: :bilinmeyen")
	assert.Contains(t, stderr, "error: line 1:5: undefined: c")
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
