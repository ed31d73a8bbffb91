package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callFile(t *testing.T, name string, args ...Value) (Value, error) {
	t.Helper()
	reg := NewRegistry()
	fn, ok := reg.Lookup([]string{"dosya"}, name)
	require.True(t, ok, name)
	require.Equal(t, len(args), fn.Arity())
	res, err := fn.Native(&CallContext{Classes: reg}, Empty, args)
	t.Cleanup(func() { Release(res) })
	return res, err
}

func TestFileReadWrite(t *testing.T) {
	dir := t.TempDir()
	path := track(t, NewText(filepath.Join(dir, "not.txt")))

	exists, err := callFile(t, "var_mı", path)
	require.NoError(t, err)
	assert.Equal(t, False, exists)

	_, err = callFile(t, "yaz", path, track(t, NewText("bir\r\niki\n")))
	require.NoError(t, err)
	_, err = callFile(t, "ekle", path, FromNumber(3))
	require.NoError(t, err)

	content, err := callFile(t, "oku", path)
	require.NoError(t, err)
	assert.Equal(t, "bir\r\niki\n3", content.String())

	lines, err := callFile(t, "satırlar", path)
	require.NoError(t, err)
	assert.Equal(t, "['bir', 'iki', '3']", lines.String())

	exists, err = callFile(t, "var_mı", path)
	require.NoError(t, err)
	assert.Equal(t, True, exists)
}

func TestFileLinesEdgeCases(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "[]"},
		{"single newline", "\n", "[]"},
		{"no trailing newline", "a\nb", "['a', 'b']"},
		{"blank middle line", "a\n\nb\n", "['a', '', 'b']"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, string(rune('a'+i)))
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			lines, err := callFile(t, "satırlar", track(t, NewText(path)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines.String())
		})
	}
}

func TestFileMissingAndBadPaths(t *testing.T) {
	missing := track(t, NewText(filepath.Join(t.TempDir(), "yok.txt")))

	res, err := callFile(t, "oku", missing)
	require.NoError(t, err)
	assert.Equal(t, Empty, res)

	res, err = callFile(t, "satırlar", missing)
	require.NoError(t, err)
	assert.Equal(t, Empty, res)

	_, err = callFile(t, "oku", FromNumber(1))
	require.Error(t, err)
	assert.Equal(t, "oku: yol yazı olmalı, sayı geldi", err.Error())

	_, err = callFile(t, "yaz", track(t, NewText("")), Empty)
	assert.Error(t, err)

	res, err = callFile(t, "var_mı", True)
	require.NoError(t, err)
	assert.Equal(t, False, res)

	// Writing into a missing directory fails at runtime.
	bad := track(t, NewText(filepath.Join(t.TempDir(), "yok", "dosya.txt")))
	_, err = callFile(t, "yaz", bad, Empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaz: ")
	_, err = callFile(t, "ekle", bad, Empty)
	assert.Contains(t, err.Error(), "ekle: ")
}
