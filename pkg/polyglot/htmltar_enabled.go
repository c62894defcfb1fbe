//go:build !nohtmltar

package polyglot

import (
	"context"
	"fmt"

	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/htmltar"
)

// HTMLTarSupported reports whether this build renders the html+tar target.
const HTMLTarSupported = true

// renderHTMLTar splices an archive of the module and the extra files into
// the template. The template text outside the two anchors is copied
// unchanged; the content anchor itself is replaced by the archive and the
// unpacking script is placed right before the script anchor.
func (c *Composer) renderHTMLTar(ctx context.Context, in Inputs, result *Result) error {
	logger := logging.FromContext(ctx)

	if in.IndexHTML == nil {
		return ErrTemplateRequired
	}

	resolution, err := c.Resolver.Resolve(string(in.IndexHTML.Data))
	if err != nil {
		return fmt.Errorf("resolve anchors in %s: %w", in.IndexHTML.Name, err)
	}
	if len(resolution.Synthesized) > 0 {
		logger.Debug("anchors synthesized", logging.FieldAnchor, resolution.Synthesized, logging.FieldPasses, resolution.Passes)
	}
	result.Synthesized = resolution.Synthesized

	doc := resolution.Document
	source := doc.Text()

	content, err := doc.Span(resolution.InsertionTag)
	if err != nil {
		return fmt.Errorf("content anchor: %w", err)
	}
	script, err := doc.Span(resolution.Stage0)
	if err != nil {
		return fmt.Errorf("script anchor: %w", err)
	}
	if content.End >= script.Start {
		return fmt.Errorf("%w: content anchor ends at byte %d, script anchor starts at byte %d",
			ErrAnchorOrder, content.End, script.Start)
	}

	head := source[:resolution.HTMLInsertionPoint]
	logger.Debug("splitting template", logging.FieldInsertion, resolution.HTMLInsertionPoint,
		logging.FieldAnchor, content.Start)

	entries := []Entry{{Name: BootPath, Data: result.Module}}

	if in.TrailingZip != nil {
		zipped, skipped, err := ZipEntries(in.TrailingZip.Data)
		if err != nil {
			return fmt.Errorf("read zip %s: %w", in.TrailingZip.Name, err)
		}
		for _, name := range skipped {
			logger.Warn("zip member skipped", logging.FieldEntry, name)
		}
		result.Skipped = append(result.Skipped, skipped...)
		entries = append(entries, zipped...)
	}
	for _, entry := range in.RootFS {
		if err := htmltar.ValidateName(entry.Name); err != nil {
			logger.Warn("root filesystem file skipped", logging.FieldEntry, entry.Name, logging.FieldError, err)
			result.Skipped = append(result.Skipped, entry.Name)
			continue
		}
		entries = append(entries, entry)
	}

	encoder := c.NewEncoder()

	start, err := encoder.StartOfFile([]byte(head), content.Start)
	if err != nil {
		return fmt.Errorf("start archive: %w", err)
	}

	out := make([]byte, 0, len(source)+archiveSize(entries))
	out = append(out, source[:start.Consumed]...)
	out = append(out, start.Header...)
	out = append(out, start.Extra...)
	out = append(out, source[start.Consumed:content.Start]...)

	for idx, entry := range entries {
		var rec htmltar.Record
		if idx == 0 {
			rec, err = encoder.Insert(entry)
		} else {
			rec, err = encoder.Continue(entry)
		}
		if err != nil {
			return fmt.Errorf("embed %s: %w", entry.Name, err)
		}
		out = rec.AppendTo(out)
		result.Entries = append(result.Entries, entry.Name)
	}

	eof, err := encoder.EOF()
	if err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	out = eof.AppendTo(out)

	out = append(out, source[content.End:script.Start]...)
	out = append(out, "<script>"...)
	out = append(out, HTMLPlusTarScript()...)
	out = append(out, "</script>"...)
	out = append(out, source[script.End:]...)

	logger.Debug("archive embedded", logging.FieldEntries, len(entries), logging.FieldBytes, len(out))

	result.Bytes = out
	return nil
}

// archiveSize estimates the encoded size of entries.
func archiveSize(entries []Entry) int {
	size := 4 * htmltar.BlockSize
	for _, entry := range entries {
		size += 2*htmltar.BlockSize + len(entry.Data)*4/3
	}
	return size
}
