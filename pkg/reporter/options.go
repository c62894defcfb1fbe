package reporter

import (
	"io"
	"os"
)

// bufWriterSize is the buffer size for buffered output writers (64 KiB).
const bufWriterSize = 64 * 1024

// defaultTermWidth is the table width used when none is configured.
const defaultTermWidth = 100

// Options configures reporter behavior.
type Options struct {
	// Writer is the destination for the report (typically os.Stderr, since
	// standard output may carry the artifact).
	Writer io.Writer

	// Format specifies the output format.
	Format Format

	// Color controls colorized output.
	// Values: "auto" (default), "always", "never"
	Color string

	// Compact uses minified JSON.
	Compact bool

	// TermWidth bounds the section table of the summary format.
	TermWidth int
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Writer:    os.Stderr,
		Format:    FormatText,
		Color:     "auto",
		TermWidth: defaultTermWidth,
	}
}
