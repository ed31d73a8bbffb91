package compiler

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaprak-lang/yaprak/vm"
)

// writeFiles lays out a source tree under a temporary directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func runFile(t *testing.T, path string, searchPaths ...string) (vm.Value, string) {
	t.Helper()
	var out bytes.Buffer
	machine := vm.New(vm.Options{Stdout: &out})
	prog, err := CompileFile(path, Options{Registry: machine.Registry, SearchPaths: searchPaths})
	require.NoError(t, err)
	t.Cleanup(prog.Release)

	res, err := machine.Run(prog)
	require.NoError(t, err)
	t.Cleanup(func() { vm.Release(res) })
	return res, out.String()
}

func TestLoadModuleBesideFile(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"araçlar/metin.yap": "fonk selam(ad):\n    döndür önek() + ad\nfonk önek(): döndür 'merhaba '\n",
		"ana.yap":           "yükle araçlar.metin\naraçlar::metin::selam('dünya')\n",
	})
	res, _ := runFile(t, filepath.Join(root, "ana.yap"))
	requireText(t, res, "merhaba dünya")
}

func TestLoadModuleFromSearchPath(t *testing.T) {
	lib := writeFiles(t, map[string]string{
		"matematik.yap": "fonk kare(x): döndür x * x\n",
	})
	root := writeFiles(t, map[string]string{
		"ana.yap": "yükle matematik\nmatematik::kare(7)\n",
	})
	res, _ := runFile(t, filepath.Join(root, "ana.yap"), lib)
	requireNumber(t, res, 49)
}

func TestLoadModuleCycle(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.yap":   "yükle b\nfonk f(): döndür b::g() + 1\n",
		"b.yap":   "yükle a\nfonk g(): döndür 1\nfonk h(): döndür a::f()\n",
		"ana.yap": "yükle a, b\n[a::f(), b::h()]\n",
	})
	res, _ := runFile(t, filepath.Join(root, "ana.yap"))
	assert.Equal(t, "[2, 2]", res.String())
}

func TestLoadModuleIgnoresStatements(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"yan.yap": "gç::yaz('yan etki')\nfonk bir(): döndür 1\n",
		"ana.yap": "yükle yan\nyan::bir()\n",
	})
	res, out := runFile(t, filepath.Join(root, "ana.yap"))
	requireNumber(t, res, 1)
	assert.Empty(t, out)
}

func TestLoadModuleFunctionAsValue(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"m.yap":   "fonk ikile(x): döndür x * 2\n",
		"ana.yap": "yükle m\nf = m::ikile\nf(4)\n",
	})
	res, _ := runFile(t, filepath.Join(root, "ana.yap"))
	requireNumber(t, res, 8)
}

func TestLoadModuleErrors(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"bozuk.yap": "fonk f(:\n",
		"ana.yap":   "yükle bozuk\n",
		"eksik.yap": "yükle yok\n",
		"çağrı.yap": "yükle m\nm::yok()\n",
		"m.yap":     "fonk var(): döndür 1\n",
		"gizli.yap": "yükle m\nvar()\n",
	})

	_, err := CompileFile(filepath.Join(root, "ana.yap"), Options{})
	require.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "bozuk.yap")

	_, err = CompileFile(filepath.Join(root, "eksik.yap"), Options{})
	require.ErrorIs(t, err, ErrModuleNotFound)
	assert.Contains(t, err.Error(), "eksik.yap:1:")

	_, err = CompileFile(filepath.Join(root, "çağrı.yap"), Options{})
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	// Module functions are only reachable through their path.
	_, err = CompileFile(filepath.Join(root, "gizli.yap"), Options{})
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = CompileFile(filepath.Join(root, "yok.yap"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
