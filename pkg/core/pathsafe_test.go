package core

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/dest", "/dest", true},
		{"/dest", "/dest/a", true},
		{"/dest", "/dest/a/b/c", true},
		{"/dest", "/destination", false},
		{"/dest", "/destination/a", false},
		{"/dest", "/de", false},
		{"/dest", "/", false},
		{"/dest/", "/dest/a", true},
		{"/", "/anything", true},
		{".", "a", true},
		{".", filepath.Join("a", "b"), true},
		{".", "..", false},
		{".", filepath.Join("..", "a"), false},
		{".", "/a", false},
	}
	for _, tt := range tests {
		root, path := filepath.FromSlash(tt.root), filepath.FromSlash(tt.path)
		assert.Equal(t, tt.want, within(root, path), "within(%q, %q)", tt.root, tt.path)
	}
}

func TestEntryRelPath(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr Kind
	}{
		{name: "a.txt", want: "a.txt"},
		{name: "a/b/c.txt", want: filepath.FromSlash("a/b/c.txt")},
		{name: "dir/", want: "dir"},
		{name: "./x", want: filepath.FromSlash("./x")},
		{name: "a..b/c..", want: filepath.FromSlash("a..b/c..")},
		{name: "", wantErr: KindInvalidArgument},
		{name: "/", wantErr: KindPathTraversal},
		{name: "..", wantErr: KindPathTraversal},
		{name: "../x", wantErr: KindPathTraversal},
		{name: "a/../b", wantErr: KindPathTraversal},
		{name: `a\..\b`, wantErr: KindPathTraversal},
		{name: "/etc/passwd", wantErr: KindPathTraversal},
		{name: `\server\share`, wantErr: KindPathTraversal},
		{name: "c:/windows", wantErr: KindPathTraversal},
		{name: "nul\x00byte", wantErr: KindPathTraversal},
	}
	for _, tt := range tests {
		got, err := entryRelPath(tt.name)
		if tt.wantErr != KindUnknown {
			require.Error(t, err, tt.name)
			assert.Equal(t, tt.wantErr, KindOf(err), tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestCanonicalPath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/base/sub", 0o755))

	tests := []struct {
		path string
		want string
	}{
		{"/base", "/base"},
		{"/base/./sub", "/base/sub"},
		{"/base/sub/../sub/new/file.txt", "/base/sub/new/file.txt"},
		{"/base/../../../etc", "/etc"},
	}
	for _, tt := range tests {
		got, err := canonicalPath(fsys, tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestCanonicalPathRelativeOnMemFs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("base/sub", 0o755))

	for path, want := range map[string]string{
		"base":                "base",
		"./base/sub":          filepath.FromSlash("base/sub"),
		"base/sub/../new.txt": filepath.FromSlash("base/new.txt"),
		".":                   ".",
	} {
		got, err := canonicalPath(fsys, filepath.FromSlash(path))
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := canonicalPath(fsys, filepath.FromSlash("../outside"))
	require.Error(t, err)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestResolveEntry(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/dest", 0o755))

	got, err := resolveEntry(fsys, "/dest", "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "/dest/a/b.txt", got)

	_, err = resolveEntry(fsys, "/dest", "../destination/x")
	require.Error(t, err)
	pt, ok := err.(*PathTraversalError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, "/dest", pt.Dest)
	assert.Contains(t, pt.Error(), "../destination/x")
}
