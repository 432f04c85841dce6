package core

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"agzip/pkg/progress"

	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Extension is appended to the source path when no output archive is given.
const Extension = ".zip"

// Method selects how entry content is compressed inside the archive.
type Method uint16

const (
	Store   Method = Method(zip.Store)   // No compression
	Deflate Method = Method(zip.Deflate) // klauspost deflate

	// LZ4 is a private method id. Other ZIP tools will list these entries
	// but cannot read their content.
	LZ4 Method = 0x4C34
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case Store:
		return "store"
	case Deflate:
		return "deflate"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("0x%04X", uint16(m))
	}
}

// ParseMethod maps a configuration name to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "store", "none":
		return Store, nil
	case "", "deflate":
		return Deflate, nil
	case "lz4":
		return LZ4, nil
	}
	return 0, &InvalidArgumentError{Path: name, Reason: "unknown compression method"}
}

// Entry holds file information for compression
type Entry struct {
	Name  string      // Forward-slash name within the archive
	Path  string      // Full path on the source filesystem
	Info  fs.FileInfo // Lstat result gathered while walking
	IsDir bool        // Directory marker, only written for empty directories
}

// EntryInfo describes one archive entry as reported by List.
type EntryInfo struct {
	Name           string
	IsDir          bool
	Size           uint64
	CompressedSize uint64
	Method         Method
	Modified       time.Time
}

// SkippedFile records a source file that could not be archived.
type SkippedFile struct {
	Path string
	Err  error
}

// CompressResult summarises a finished Compress call.
type CompressResult struct {
	Output  string
	Entries int
	Bytes   uint64
	Skipped []SkippedFile
}

// DecompressResult summarises a finished Decompress call.
type DecompressResult struct {
	Dest  string
	Files int
	Dirs  int
	Bytes uint64
}

// Options configures the archiver and the extractor. A nil Fs means the OS
// filesystem and a nil Logger discards everything. The zero Method is Store.
type Options struct {
	Fs            afero.Fs
	Logger        *zap.Logger
	Method        Method
	Level         int // Compressor level, -1 selects the library default
	KeepEmptyDirs bool
	Progress      *progress.Tracker
}

// DefaultOptions returns deflate at the library default level.
func DefaultOptions() Options {
	return Options{Method: Deflate, Level: -1}
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// DefaultArchivePath derives the archive path for a source path.
func DefaultArchivePath(input string) string {
	return filepath.Clean(input) + Extension
}

// DefaultExtractDir derives the destination directory for an archive.
func DefaultExtractDir(archive string) string {
	clean := filepath.Clean(archive)
	if ext := filepath.Ext(clean); ext != "" && ext != filepath.Base(clean) {
		return strings.TrimSuffix(clean, ext)
	}
	return clean + ".d"
}

func (o Options) validate() error {
	switch o.Method {
	case Store, Deflate, LZ4:
	default:
		return &InvalidArgumentError{Path: o.Method.String(), Reason: "unknown compression method"}
	}
	if o.Level < -1 || o.Level > 9 {
		return &InvalidArgumentError{Path: fmt.Sprint(o.Level), Reason: "compression level must be between -1 and 9"}
	}
	return nil
}

// registerWriterMethods installs the deflate and lz4 compressors on w.
func registerWriterMethods(w *zip.Writer, level int) {
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	w.RegisterCompressor(uint16(LZ4), func(out io.Writer) (io.WriteCloser, error) {
		zw := lz4.NewWriter(out)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
			return nil, errors.Wrap(err, "configure lz4 writer")
		}
		return zw, nil
	})
}

// registerReaderMethods installs the deflate and lz4 decompressors on r.
func registerReaderMethods(r *zip.Reader) {
	r.RegisterDecompressor(zip.Deflate, flate.NewReader)
	r.RegisterDecompressor(uint16(LZ4), func(in io.Reader) io.ReadCloser {
		return io.NopCloser(lz4.NewReader(in))
	})
}

func lz4Level(level int) lz4.CompressionLevel {
	switch {
	case level <= 0:
		return lz4.Fast
	case level >= 9:
		return lz4.Level9
	default:
		return lz4.CompressionLevel(1 << (8 + level))
	}
}
