package core

import (
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// linkFS lets securejoin inspect an afero filesystem.
type linkFS struct {
	fs afero.Fs
}

func (l linkFS) Lstat(name string) (os.FileInfo, error) {
	if lst, ok := l.fs.(afero.Lstater); ok {
		fi, _, err := lst.LstatIfPossible(name)
		return fi, err
	}
	return l.fs.Stat(name)
}

func (l linkFS) Readlink(name string) (string, error) {
	if lr, ok := l.fs.(afero.LinkReader); ok {
		return lr.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
}

// canonicalPath resolves symlinks and dot segments of path one component at
// a time. Components that do not exist yet are appended lexically, so the
// result is also defined for files that are about to be created.
//
// Relative paths are anchored at the process working directory on the OS
// filesystem. Other filesystems have no working directory, so there a
// relative path stays relative to the filesystem's own "." and may not
// climb above it.
func canonicalPath(fsys afero.Fs, path string) (string, error) {
	root := filepath.VolumeName(path) + string(filepath.Separator)
	if !filepath.IsAbs(path) {
		if _, ok := fsys.(*afero.OsFs); ok {
			wd, err := os.Getwd()
			if err != nil {
				return "", errors.Wrap(err, "get working directory")
			}
			// Not filepath.Join: ".." must be evaluated after symlinks.
			path = wd + string(filepath.Separator) + path
			root = filepath.VolumeName(path) + string(filepath.Separator)
		} else {
			if escapesDot(filepath.Clean(path)) {
				return "", &InvalidArgumentError{Path: path, Reason: "relative path leaves the filesystem root"}
			}
			root = "."
		}
	}
	canonical, err := securejoin.SecureJoinVFS(root, path, linkFS{fs: fsys})
	if err != nil {
		return "", errors.Wrapf(err, "canonicalize %s", path)
	}
	return canonical, nil
}

func escapesDot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// within reports whether path is root or lies beneath it. Both must be
// canonical. The separator boundary keeps /dest from matching /destination.
func within(root, path string) bool {
	if path == root {
		return true
	}
	if root == "." {
		return !filepath.IsAbs(path) && !escapesDot(path)
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// entryRelPath validates an archive entry name and returns it as a relative
// OS path. Names are never trusted: absolute names, drive letters, NUL bytes
// and ".." segments are rejected whatever the separator.
func entryRelPath(name string) (string, error) {
	trimmed := strings.TrimRight(name, "/")
	if trimmed == "" {
		if name == "" {
			return "", &InvalidArgumentError{Path: name, Reason: "empty entry name"}
		}
		return "", &PathTraversalError{Entry: name}
	}
	if strings.ContainsRune(name, 0) ||
		strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) ||
		filepath.IsAbs(trimmed) || filepath.VolumeName(trimmed) != "" || hasDriveLetter(trimmed) {
		return "", &PathTraversalError{Entry: name}
	}
	for _, seg := range strings.FieldsFunc(trimmed, isSeparator) {
		if seg == ".." {
			return "", &PathTraversalError{Entry: name}
		}
	}
	return filepath.FromSlash(trimmed), nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

func hasDriveLetter(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// resolveEntry returns the canonical destination of an entry, failing with a
// PathTraversalError when it is not contained in the canonical dest.
func resolveEntry(fsys afero.Fs, canonDest, name string) (string, error) {
	rel, err := entryRelPath(name)
	if err != nil {
		if pt, ok := err.(*PathTraversalError); ok {
			pt.Dest = canonDest
		}
		return "", err
	}
	candidate, err := canonicalPath(fsys, canonDest+string(filepath.Separator)+rel)
	if err != nil {
		return "", ioError("resolve", name, err)
	}
	if !within(canonDest, candidate) {
		return "", &PathTraversalError{Entry: name, Dest: canonDest}
	}
	return candidate, nil
}
