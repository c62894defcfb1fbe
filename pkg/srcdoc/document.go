// Package srcdoc maps (line, column) source coordinates onto absolute byte
// offsets of a text document.
//
// A Document is value data: the text and its line table are built together
// and never patched. Rewriting a document means building a new one, which
// invalidates every span computed against the old text.
package srcdoc

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfRange is returned when a coordinate does not address a byte of the document.
var ErrOutOfRange = errors.New("source coordinate out of range")

// SourceCharacter is a 1-based (line, column) coordinate.
// Columns count bytes, not runes.
type SourceCharacter struct {
	Line   int
	Column int
}

// IsValid returns true if both components are positive.
func (c SourceCharacter) IsValid() bool {
	return c.Line > 0 && c.Column > 0
}

// String renders the coordinate as "line:column".
func (c SourceCharacter) String() string {
	return fmt.Sprintf("%d:%d", c.Line, c.Column)
}

// TagSpan marks the full outer extent of an element.
// End is exclusive: it addresses the character just past the element.
type TagSpan struct {
	Start SourceCharacter
	End   SourceCharacter
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

// Document is a text buffer plus a table of line start offsets.
// Index i of the table holds the byte offset of line i+1.
type Document struct {
	text   string
	byLine []int
}

// New builds a Document, scanning text once for line terminators.
// A line starts after every '\n'; a trailing newline opens an empty last line.
func New(text string) *Document {
	byLine := make([]int, 1, 64)
	for idx := 0; idx < len(text); idx++ {
		if text[idx] == '\n' {
			byLine = append(byLine, idx+1)
		}
	}

	return &Document{text: text, byLine: byLine}
}

// Text returns the full document text.
func (d *Document) Text() string {
	return d.text
}

// Len returns the document length in bytes.
func (d *Document) Len() int {
	return len(d.text)
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int {
	return len(d.byLine)
}

// LineStart returns the byte offset at which the 1-based line begins.
func (d *Document) LineStart(line int) (int, bool) {
	if line < 1 || line > len(d.byLine) {
		return 0, false
	}
	return d.byLine[line-1], true
}

// Offset converts a 1-based coordinate to a byte offset.
// The column may point one past the last byte of its line.
func (d *Document) Offset(at SourceCharacter) (int, error) {
	start, ok := d.LineStart(at.Line)
	if !ok || at.Column < 1 {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, at)
	}

	lineEnd := len(d.text)
	if at.Line < len(d.byLine) {
		lineEnd = d.byLine[at.Line]
	}

	offset := start + at.Column - 1
	if offset > lineEnd {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, at)
	}

	return offset, nil
}

// Position converts a byte offset back to a 1-based coordinate.
// Offsets past the end clamp to the end of the document.
func (d *Document) Position(offset int) SourceCharacter {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}

	// First line whose start lies beyond offset, minus one.
	lineIdx := sort.Search(len(d.byLine), func(i int) bool {
		return d.byLine[i] > offset
	}) - 1

	return SourceCharacter{
		Line:   lineIdx + 1,
		Column: offset - d.byLine[lineIdx] + 1,
	}
}

// Span converts a TagSpan to an absolute byte range.
func (d *Document) Span(span TagSpan) (Range, error) {
	start, err := d.Offset(span.Start)
	if err != nil {
		return Range{}, fmt.Errorf("span start: %w", err)
	}

	end, err := d.Offset(span.End)
	if err != nil {
		return Range{}, fmt.Errorf("span end: %w", err)
	}

	if end < start {
		return Range{}, fmt.Errorf("%w: span ends at %s before it starts at %s", ErrOutOfRange, span.End, span.Start)
	}

	return Range{Start: start, End: end}, nil
}

// SpanOf is the inverse of Span.
func (d *Document) SpanOf(r Range) TagSpan {
	return TagSpan{Start: d.Position(r.Start), End: d.Position(r.End)}
}

// Slice returns the text covered by r. It panics if r is out of bounds.
func (d *Document) Slice(r Range) string {
	return d.text[r.Start:r.End]
}
