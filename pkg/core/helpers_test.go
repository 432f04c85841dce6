package core

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// writeTree creates every file of files (slash names) below root.
func writeTree(t *testing.T, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(root, 0o755))
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
}

// readTree returns the content of every regular file below root keyed by
// its slash-separated relative path.
func readTree(t *testing.T, fsys afero.Fs, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.Mode().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	require.NoError(t, err)
	return files
}

type rawEntry struct {
	name string
	body string
}

// buildZip writes an archive with exactly the given entry names, bypassing
// the archiver so that hostile names can be produced.
func buildZip(t *testing.T, fsys afero.Fs, path string, entries ...rawEntry) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	f, err := fsys.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, e.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// entryNames lists the names of the archive at path in archive order.
func entryNames(t *testing.T, fsys afero.Fs, path string) []string {
	t.Helper()
	infos, err := List(path, Options{Fs: fsys})
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// failOpenFs fails Open for the listed paths and behaves like Fs otherwise.
type failOpenFs struct {
	afero.Fs
	fail map[string]bool
}

func (f failOpenFs) Open(name string) (afero.File, error) {
	if f.fail[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func (o Options) withFs(fsys afero.Fs) Options {
	o.Fs = fsys
	return o
}

// failReadFs opens the listed paths normally but every Read on them fails.
type failReadFs struct {
	afero.Fs
	fail map[string]bool
}

func (f failReadFs) Open(name string) (afero.File, error) {
	file, err := f.Fs.Open(name)
	if err != nil || !f.fail[name] {
		return file, err
	}
	return failReadFile{File: file}, nil
}

type failReadFile struct {
	afero.File
}

func (failReadFile) Read([]byte) (int, error) {
	return 0, syscall.EIO
}
