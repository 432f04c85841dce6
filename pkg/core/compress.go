package core

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"agzip/pkg/progress"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// skipError marks a per-file failure that leaves the archive intact.
type skipError struct {
	err error
}

func (e *skipError) Error() string { return e.err.Error() }

// Compress writes input, a single file or a directory tree, into a ZIP
// archive at output. An empty output selects DefaultArchivePath(input).
//
// Files that cannot be opened are logged, reported in the result and left
// out of the archive; every other failure aborts the call.
func Compress(input, output string, opts Options) (*CompressResult, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if output == "" {
		output = DefaultArchivePath(input)
	}

	info, err := opts.Fs.Stat(input)
	if err != nil {
		return nil, ioError("stat", input, err)
	}

	var (
		entries []Entry
		skipped []SkippedFile
	)
	switch {
	case info.IsDir():
		entries, skipped, err = collectDirEntries(opts, input, output)
		if err != nil {
			return nil, err
		}
	case info.Mode().IsRegular():
		if err := checkNotSelf(opts.Fs, input, output); err != nil {
			return nil, err
		}
		entries = []Entry{{Name: filepath.Base(input), Path: input, Info: info}}
	default:
		return nil, &InvalidArgumentError{Path: input, Reason: "not a regular file or directory"}
	}

	opts.Progress.Start(calculateTotalSize(entries))
	defer opts.Progress.Stop()

	res, err := compressFiles(opts, entries, output)
	if err != nil {
		return nil, err
	}
	res.Skipped = append(skipped, res.Skipped...)
	return res, nil
}

func checkNotSelf(fsys afero.Fs, input, output string) error {
	in, err := canonicalPath(fsys, input)
	if err != nil {
		return ioError("resolve", input, err)
	}
	out, err := canonicalPath(fsys, output)
	if err != nil {
		return ioError("resolve", output, err)
	}
	if in == out {
		return &InvalidArgumentError{Path: output, Reason: "archive would overwrite its own input"}
	}
	return nil
}

// calculateTotalSize calculates the total size of all files to be compressed
func calculateTotalSize(entries []Entry) uint64 {
	var totalSize uint64
	for _, entry := range entries {
		if entry.IsDir || entry.Info == nil {
			continue
		}
		totalSize += uint64(entry.Info.Size())
	}
	return totalSize
}

// collectDirEntries gathers all regular files below root with their
// archive names. Unreadable subdirectories are skipped and reported; the
// output archive itself is never collected.
func collectDirEntries(opts Options, root, output string) ([]Entry, []SkippedFile, error) {
	fsys, log := opts.Fs, opts.Logger
	canonOut, err := canonicalPath(fsys, output)
	if err != nil {
		return nil, nil, ioError("resolve", output, err)
	}
	outBase := filepath.Base(canonOut)

	walkRoot := root
	lfs := linkFS{fs: fsys}
	if fi, err := lfs.Lstat(root); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		// A trailing separator makes Lstat follow the link to the directory.
		walkRoot = root + string(filepath.Separator)
	}

	var (
		entries []Entry
		skipped []SkippedFile
	)
	err = afero.Walk(fsys, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				return ioError("walk", root, err)
			}
			log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			skipped = append(skipped, SkippedFile{Path: path, Err: err})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == walkRoot {
			return nil
		}

		relPath, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return errors.Wrapf(err, "relative path for %s", path)
		}
		name := filepath.ToSlash(relPath)

		switch {
		case info.IsDir():
			if !opts.KeepEmptyDirs {
				return nil
			}
			empty, err := afero.IsEmpty(fsys, path)
			if err != nil {
				// The walk reports the same read error for this directory next.
				return nil
			}
			if empty {
				entries = append(entries, Entry{Name: name + "/", Path: path, Info: info, IsDir: true})
			}
		case info.Mode().IsRegular():
			if filepath.Base(path) == outBase {
				if canon, err := canonicalPath(fsys, path); err == nil && canon == canonOut {
					log.Info("not archiving the output archive", zap.String("path", path))
					return nil
				}
			}
			entries = append(entries, Entry{Name: name, Path: path, Info: info})
		default:
			log.Debug("skipping non-regular file", zap.String("path", path), zap.Stringer("mode", info.Mode()))
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "walk directory %s", root)
	}
	return entries, skipped, nil
}

// compressFiles streams every entry into a temporary file next to output and
// renames it into place once the archive is complete. On failure the
// temporary file is removed and an existing output is left untouched.
func compressFiles(opts Options, entries []Entry, output string) (res *CompressResult, err error) {
	fsys, log := opts.Fs, opts.Logger

	dir := filepath.Dir(output)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError("create output directory", dir, err)
	}
	f, err := afero.TempFile(fsys, dir, "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return nil, ioError("create", output, err)
	}
	tmp := f.Name()
	defer func() {
		if f != nil {
			f.Close()
		}
		if err != nil {
			if rerr := fsys.Remove(tmp); rerr != nil {
				log.Warn("removing partial archive", zap.String("path", tmp), zap.Error(rerr))
			}
		}
	}()

	zw := zip.NewWriter(f)
	registerWriterMethods(zw, opts.Level)

	res = &CompressResult{Output: output}
	for _, entry := range entries {
		n, err := compressEntry(opts, zw, entry)
		if err != nil {
			var skip *skipError
			if errors.As(err, &skip) {
				log.Warn("skipping file", zap.String("path", entry.Path), zap.Error(skip.err))
				res.Skipped = append(res.Skipped, SkippedFile{Path: entry.Path, Err: skip.err})
				continue
			}
			return nil, err
		}
		res.Entries++
		res.Bytes += n
		log.Debug("added entry", zap.String("name", entry.Name), zap.Uint64("bytes", n))
	}
	if err := zw.Close(); err != nil {
		return nil, ioError("finish", output, err)
	}
	cerr := f.Close()
	f = nil
	if cerr != nil {
		return nil, ioError("close", tmp, cerr)
	}
	// TempFile creates owner-only files.
	if err := fsys.Chmod(tmp, 0o644); err != nil {
		return nil, ioError("chmod", tmp, err)
	}
	if err := fsys.Rename(tmp, output); err != nil {
		return nil, ioError("rename", output, err)
	}
	return res, nil
}

// compressEntry writes one entry. Failures before the entry header is
// written are returned as *skipError; after that the archive is unusable.
func compressEntry(opts Options, zw *zip.Writer, entry Entry) (uint64, error) {
	hdr := &zip.FileHeader{Name: entry.Name, Method: uint16(opts.Method)}

	if entry.IsDir {
		hdr.Method = zip.Store
		hdr.Modified = entry.Info.ModTime()
		hdr.SetMode(os.ModeDir | entry.Info.Mode().Perm())
		if _, err := zw.CreateHeader(hdr); err != nil {
			return 0, ioError("write header", entry.Name, err)
		}
		return 0, nil
	}

	src, err := opts.Fs.Open(entry.Path)
	if err != nil {
		return 0, &skipError{err: err}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, &skipError{err: err}
	}
	hdr.Modified = info.ModTime()
	hdr.SetMode(info.Mode().Perm())

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, ioError("write header", entry.Name, err)
	}
	n, err := io.Copy(&progress.Writer{W: w, T: opts.Progress}, src)
	if err != nil {
		return 0, ioError("copy", entry.Path, err)
	}
	return uint64(n), nil
}
