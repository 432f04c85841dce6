package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker reports processed bytes. A nil *Tracker is valid and silent, which
// is what the core uses when no progress output was requested.
type Tracker struct {
	bar       *progressbar.ProgressBar
	processed uint64
}

// New creates a tracker that renders a byte bar on w when w is a terminal.
// On any other writer the bar is hidden and only the counter is kept.
func New(w io.Writer, description string) *Tracker {
	return &Tracker{
		bar: progressbar.NewOptions64(
			-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetVisibility(IsTerminal(w)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription(description),
			progressbar.OptionThrottle(250*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

// IsTerminal reports whether w is a character device attached to a TTY.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start sets the expected total once it is known.
func (t *Tracker) Start(total uint64) {
	if t == nil {
		return
	}
	if total == 0 {
		total = 1 // Avoid division by zero
	}
	t.processed = 0
	t.bar.ChangeMax64(int64(total))
	t.bar.Reset()
}

// AddBytes adds processed bytes to the counter
func (t *Tracker) AddBytes(n uint64) {
	if t == nil || n == 0 {
		return
	}
	t.processed += n
	_ = t.bar.Add64(int64(n))
}

// Processed returns the number of bytes reported so far.
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed
}

// Stop finishes the bar.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	_ = t.bar.Finish()
}

// FormatSize returns a human-readable size string
func FormatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Writer is a writer that tracks bytes written for progress reporting
type Writer struct {
	W io.Writer
	T *Tracker
}

// Write implements io.Writer and tracks bytes written
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if n > 0 {
		pw.T.AddBytes(uint64(n))
	}
	return
}
