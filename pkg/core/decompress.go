package core

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"agzip/pkg/progress"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Decompress extracts every entry of the archive at input beneath dest.
// An empty dest selects DefaultExtractDir(input).
//
// Entries are processed in archive order. Any failure aborts the whole
// extraction; in particular an entry resolving outside dest yields a
// *PathTraversalError and nothing after it is written.
func Decompress(input, dest string, opts Options) (*DecompressResult, error) {
	opts = opts.withDefaults()
	fsys, log := opts.Fs, opts.Logger
	if dest == "" {
		dest = DefaultExtractDir(input)
	}

	f, zr, err := openArchive(fsys, input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := fsys.MkdirAll(dest, 0o755); err != nil {
		return nil, ioError("create destination", dest, err)
	}
	canonDest, err := canonicalPath(fsys, dest)
	if err != nil {
		return nil, ioError("resolve", dest, err)
	}

	var totalSize uint64
	for _, zf := range zr.File {
		totalSize += zf.UncompressedSize64
	}
	opts.Progress.Start(totalSize)
	defer opts.Progress.Stop()

	res := &DecompressResult{Dest: canonDest}
	seen := make(map[string]struct{}, len(zr.File))
	for _, zf := range zr.File {
		target, err := resolveEntry(fsys, canonDest, zf.Name)
		if err != nil {
			log.Error("rejecting archive entry", zap.String("archive", input), zap.String("entry", zf.Name), zap.Error(err))
			return nil, err
		}
		if _, dup := seen[target]; dup {
			return nil, &InvalidArgumentError{Path: zf.Name, Reason: "duplicate entry name"}
		}
		seen[target] = struct{}{}

		if strings.HasSuffix(zf.Name, "/") {
			if err := fsys.MkdirAll(target, 0o755); err != nil {
				return nil, ioError("create directory", target, err)
			}
			res.Dirs++
			continue
		}

		n, err := extractFile(opts, zf, target)
		if err != nil {
			return nil, err
		}
		res.Files++
		res.Bytes += n
		log.Debug("extracted entry", zap.String("name", zf.Name), zap.String("path", target), zap.Uint64("bytes", n))
	}
	return res, nil
}

// List returns the entries of the archive at input in archive order. Entry
// names are checked the same way Decompress checks them.
func List(input string, opts Options) ([]EntryInfo, error) {
	opts = opts.withDefaults()

	f, zr, err := openArchive(opts.Fs, input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	infos := make([]EntryInfo, 0, len(zr.File))
	for _, zf := range zr.File {
		if _, err := entryRelPath(zf.Name); err != nil {
			return nil, err
		}
		infos = append(infos, EntryInfo{
			Name:           zf.Name,
			IsDir:          strings.HasSuffix(zf.Name, "/"),
			Size:           zf.UncompressedSize64,
			CompressedSize: zf.CompressedSize64,
			Method:         Method(zf.Method),
			Modified:       zf.Modified,
		})
	}
	return infos, nil
}

// openArchive opens the ZIP file at path. The caller closes the returned file.
func openArchive(fsys afero.Fs, path string) (afero.File, *zip.Reader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, nil, ioError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, ioError("stat", path, err)
	}
	zr, err := zip.NewReader(f, info.Size())
	// Entry names are validated by resolveEntry, not by archive/zip.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		f.Close()
		return nil, nil, ioError("read archive", path, err)
	}
	registerReaderMethods(zr)
	return f, zr, nil
}

// extractFile streams one file entry to target, creating its parent.
func extractFile(opts Options, zf *zip.File, target string) (n uint64, err error) {
	if err := opts.Fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, ioError("create directory", filepath.Dir(target), err)
	}

	rc, err := zf.Open()
	if err != nil {
		return 0, ioError("open entry", zf.Name, err)
	}
	defer rc.Close()

	perm := entryPerm(zf)
	out, err := opts.Fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, ioError("create", target, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			n, err = 0, ioError("close", target, cerr)
		}
	}()

	written, err := io.Copy(&progress.Writer{W: out, T: opts.Progress}, rc)
	if err != nil {
		return 0, ioError("extract", zf.Name, err)
	}
	// OpenFile is subject to the umask and leaves existing files' modes alone.
	if err := opts.Fs.Chmod(target, perm); err != nil {
		return 0, ioError("chmod", target, err)
	}
	return uint64(written), nil
}

// entryPerm keeps the archived permission bits; the owner can always read
// and write what was extracted.
func entryPerm(zf *zip.File) os.FileMode {
	return zf.Mode().Perm() | 0o600
}
