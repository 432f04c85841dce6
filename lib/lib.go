// Package lib is the library entry point for compressing directory trees into
// ZIP archives and extracting them again. It re-exports the core types and
// adds Run, which dispatches on an operation selector the way a CLI, batch or
// service wrapper receives it.
package lib

import (
	"strings"

	"agzip/pkg/core"
	"agzip/pkg/progress"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Constants re-exported from core
const (
	Extension = core.Extension
	Store     = core.Store
	Deflate   = core.Deflate
	LZ4       = core.LZ4
)

// Types re-exported from core
type (
	Options              = core.Options
	Method               = core.Method
	Entry                = core.Entry
	EntryInfo            = core.EntryInfo
	CompressResult       = core.CompressResult
	DecompressResult     = core.DecompressResult
	SkippedFile          = core.SkippedFile
	Kind                 = core.Kind
	IOError              = core.IOError
	InvalidArgumentError = core.InvalidArgumentError
	PathTraversalError   = core.PathTraversalError
)

// Operation selects what Run does.
type Operation string

const (
	OpCompress   Operation = "compress"
	OpDecompress Operation = "decompress"
)

// ParseOperation accepts an operation name in any letter case.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpCompress, OpDecompress:
		return op, nil
	}
	return "", &core.InvalidArgumentError{Path: s, Reason: "operation must be compress or decompress"}
}

// DefaultOptions re-exported from core
func DefaultOptions() Options {
	return core.DefaultOptions()
}

// ParseMethod re-exported from core
func ParseMethod(name string) (Method, error) {
	return core.ParseMethod(name)
}

// DefaultArchivePath re-exported from core
func DefaultArchivePath(input string) string {
	return core.DefaultArchivePath(input)
}

// DefaultExtractDir re-exported from core
func DefaultExtractDir(archive string) string {
	return core.DefaultExtractDir(archive)
}

// KindOf re-exported from core
func KindOf(err error) Kind {
	return core.KindOf(err)
}

// NewProgress returns a tracker for Options.Progress
var NewProgress = progress.New

// Compress is a wrapper around core.Compress
func Compress(input, output string, opts Options) (*CompressResult, error) {
	return core.Compress(input, output, opts)
}

// Decompress is a wrapper around core.Decompress
func Decompress(input, dest string, opts Options) (*DecompressResult, error) {
	return core.Decompress(input, dest, opts)
}

// List is a wrapper around core.List
func List(input string, opts Options) ([]EntryInfo, error) {
	return core.List(input, opts)
}

// Run checks op and that input exists, then runs op from input to output.
// An empty output selects the default archive path or extraction directory.
func Run(op Operation, input, output string, opts Options) error {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if op != OpCompress && op != OpDecompress {
		return &core.InvalidArgumentError{Path: string(op), Reason: "operation must be compress or decompress"}
	}
	if strings.TrimSpace(input) == "" {
		return &core.InvalidArgumentError{Path: input, Reason: "input path is empty"}
	}
	if _, err := fsys.Stat(input); err != nil {
		return &core.IOError{Op: "stat", Path: input, Err: err}
	}

	switch op {
	case OpCompress:
		res, err := core.Compress(input, output, opts)
		if err != nil {
			return errors.Wrapf(err, "compress %s", input)
		}
		log.Info("compressed",
			zap.String("input", input),
			zap.String("output", res.Output),
			zap.Int("entries", res.Entries),
			zap.String("size", progress.FormatSize(res.Bytes)),
			zap.Int("skipped", len(res.Skipped)))
	case OpDecompress:
		res, err := core.Decompress(input, output, opts)
		if err != nil {
			return errors.Wrapf(err, "decompress %s", input)
		}
		log.Info("decompressed",
			zap.String("input", input),
			zap.String("dest", res.Dest),
			zap.Int("files", res.Files),
			zap.Int("dirs", res.Dirs),
			zap.String("size", progress.FormatSize(res.Bytes)))
	}
	return nil
}
