// Package indexpage renders Markdown into the bootstrap page of an
// artifact.
package indexpage

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Flavors accepted by New.
const (
	FlavorCommonMark = "commonmark"
	FlavorGFM        = "gfm"
)

// DefaultTitle is used when the document has no level one heading.
const DefaultTitle = "wah-polyglot"

// Renderer turns Markdown into a complete HTML document.
type Renderer struct {
	flavor string
	md     goldmark.Markdown
}

// New returns a Renderer for flavor. Unknown flavors fall back to GFM.
// Raw HTML in the source is passed through so pages can carry their own
// markup.
func New(flavor string) *Renderer {
	if flavor != FlavorCommonMark {
		flavor = FlavorGFM
	}

	opts := []goldmark.Option{
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if flavor == FlavorGFM {
		opts = append(opts, goldmark.WithExtensions(extension.GFM))
	}

	return &Renderer{flavor: flavor, md: goldmark.New(opts...)}
}

// Flavor returns the configured Markdown flavor.
func (r *Renderer) Flavor() string {
	return r.flavor
}

// Render converts source into a document. The title is the text of the
// first level one heading.
func (r *Renderer) Render(ctx context.Context, source []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render cancelled: %w", err)
	}

	doc := r.md.Parser().Parse(text.NewReader(source))

	var body bytes.Buffer
	if err := r.md.Renderer().Render(&body, source, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	title := Title(doc, source)
	if title == "" {
		title = DefaultTitle
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// Title returns the plain text of the first level one heading of doc.
func Title(doc ast.Node, source []byte) string {
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level != 1 {
			continue
		}

		var sb strings.Builder
		_ = ast.Walk(heading, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch t := n.(type) {
			case *ast.Text:
				sb.Write(t.Segment.Value(source))
				if t.SoftLineBreak() {
					sb.WriteByte(' ')
				}
			case *ast.String:
				sb.Write(t.Value)
			}
			return ast.WalkContinue, nil
		})
		return strings.TrimSpace(sb.String())
	}
	return ""
}
