package reporter

import (
	"bufio"
	"context"
	"fmt"

	"github.com/yaklabco/wahpolyglot/internal/ui/pretty"
	"github.com/yaklabco/wahpolyglot/pkg/runner"
)

// TextReporter formats results as styled terminal output: one line for
// FormatText, the summary block and section table for FormatSummary.
type TextReporter struct {
	opts   Options
	styles *pretty.Styles
	bw     *bufio.Writer
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(opts Options) *TextReporter {
	colorEnabled := pretty.IsColorEnabled(opts.Color, opts.Writer)
	return &TextReporter{
		opts:   opts,
		styles: pretty.NewStyles(colorEnabled),
		bw:     bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

// Report implements Reporter.
func (r *TextReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer func() {
		if flushErr := r.bw.Flush(); err == nil {
			err = flushErr
		}
	}()

	text := r.styles.FormatSummaryOneLine(result)
	if r.opts.Format == FormatSummary {
		text = r.styles.FormatSummary(result) +
			pretty.NewTableFormatter(r.styles, r.opts.TermWidth).FormatTable(result)
	}

	if _, err := r.bw.WriteString(text); err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}

	if result == nil {
		return 0, nil
	}
	return len(result.Warnings), nil
}
