package cmd

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"agzip/lib"
	"agzip/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&out, &out)
	root.SetArgs(append(args, "--no-progress", "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestCompressDecompressCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testDir := t.TempDir()
	src := filepath.Join(testDir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("bravo"), 0o644))

	out, err := run(t, "compress", src, "--method", "store")
	require.NoError(t, err)
	assert.Contains(t, out, src+".zip")

	zr, err := zip.OpenReader(src + ".zip")
	require.NoError(t, err)
	for _, zf := range zr.File {
		assert.Equal(t, zip.Store, zf.Method, zf.Name)
	}
	require.NoError(t, zr.Close())

	out, err = run(t, "list", src+".zip")
	require.NoError(t, err)
	assert.Contains(t, out, "nested/a.txt")
	assert.Contains(t, out, "2 entries")

	dest := filepath.Join(testDir, "out", "restored")
	_, err = run(t, "decompress", src+".zip", dest)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dest, "nested", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(got))
}

func TestDecompressCommandRejectsTraversal(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testDir := t.TempDir()
	archive := filepath.Join(testDir, "evil.zip")

	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../../evil.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("pwned"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = run(t, "extract", archive, filepath.Join(testDir, "a", "dest"))
	require.Error(t, err)
	assert.Equal(t, lib.KindOf(err).String(), "path-traversal")
	assert.NoFileExists(t, filepath.Join(testDir, "evil.txt"))
}

func TestCommandArgs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := run(t, "compress")
	assert.Error(t, err)
	_, err = run(t, "list", "a", "b")
	assert.Error(t, err)
	_, err = run(t, "compress", t.TempDir(), "--method", "zstd")
	require.Error(t, err)
	assert.Equal(t, "invalid-argument", lib.KindOf(err).String())
}

func TestCompressFlagsBoundToConfig(t *testing.T) {
	a := &app{v: config.New()}
	cmd := newCompressCmd(a)
	require.NoError(t, cmd.Flags().Set("method", "lz4"))
	require.NoError(t, cmd.Flags().Set("level", "7"))
	require.NoError(t, cmd.Flags().Set("keep-empty-dirs", "true"))

	assert.Equal(t, "lz4", a.v.GetString(config.KeyMethod))
	assert.Equal(t, 7, a.v.GetInt(config.KeyLevel))
	assert.True(t, a.v.GetBool(config.KeyKeepEmptyDirs))
}
