// Package anchor locates the splice points of an html+tar template.
//
// A template needs three elements: the root html element, an element whose
// id marks where archive content goes (ContentID), and a script element whose
// id marks the stage entry point (ScriptID). Missing anchors are synthesized
// once, after which the document is rendered anew and searched again.
package anchor

import (
	"fmt"
	"strings"

	"github.com/yaklabco/wahpolyglot/pkg/htmltree"
	"github.com/yaklabco/wahpolyglot/pkg/srcdoc"
)

// Reserved anchor identifiers.
const (
	ContentID = "WAH_POLYGLOT_HTML_PLUS_TAR_CONTENT"
	ScriptID  = "WAH_POLYGLOT_HTML_PLUS_TAR_STAGE0"
)

// maxPasses bounds the search: the original document, then at most one
// synthesized rewrite of it.
const maxPasses = 2

// Structure holds the resolved anchors. Spans refer to the Document they
// were resolved against and are invalid for any other text.
type Structure struct {
	HTMLTag srcdoc.TagSpan

	// HTMLInsertionPoint is the byte offset just past the '>' closing the
	// root element's opening tag.
	HTMLInsertionPoint int

	InsertionTag srcdoc.TagSpan
	Stage0       srcdoc.TagSpan
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Structure

	// Document is the text the structure refers to. It differs from the
	// input when anchors were synthesized.
	Document *srcdoc.Document

	// Synthesized names the anchor ids inserted into the document.
	Synthesized []string

	// Passes counts parse-and-search rounds, 1 or 2.
	Passes int
}

// Resolver finds anchors using a pluggable HTML parser.
type Resolver struct {
	parser htmltree.Parser
}

// New returns a Resolver. A nil parser selects htmltree.TokenizerParser.
func New(parser htmltree.Parser) *Resolver {
	if parser == nil {
		parser = htmltree.TokenizerParser{}
	}
	return &Resolver{parser: parser}
}

// Resolve resolves text with the default parser.
func Resolve(text string) (*Resolution, error) {
	return New(nil).Resolve(text)
}

type found struct {
	html    *htmltree.Node
	content *htmltree.Node
	script  *htmltree.Node
}

// Resolve parses text and returns its anchors, synthesizing missing
// content or script anchors at most once.
func (r *Resolver) Resolve(text string) (*Resolution, error) {
	var synthesized []string

	for pass := 1; pass <= maxPasses; pass++ {
		tree, err := r.parser.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template: %w", err)
		}

		nodes := search(tree)
		if nodes.html == nil {
			return nil, missingRoot()
		}

		if nodes.content == nil || nodes.script == nil {
			if pass == maxPasses {
				if nodes.content == nil {
					return nil, missingContent()
				}
				return nil, missingScript()
			}

			added, err := synthesize(tree, nodes)
			if err != nil {
				return nil, err
			}
			synthesized = added
			text = tree.Render()
			continue
		}

		doc := srcdoc.New(text)

		insertion, err := endOfStartTag(doc, nodes.html)
		if err != nil {
			return nil, err
		}

		return &Resolution{
			Structure: Structure{
				HTMLTag:            nodes.html.Span,
				HTMLInsertionPoint: insertion,
				InsertionTag:       nodes.content.Span,
				Stage0:             nodes.script.Span,
			},
			Document:    doc,
			Synthesized: synthesized,
			Passes:      pass,
		}, nil
	}

	// Unreachable: the last pass either returns or fails.
	return nil, missingContent()
}

func search(tree *htmltree.Tree) found {
	var nodes found

	nodes.html = tree.FindElement("html")
	nodes.content = tree.Find(func(n *htmltree.Node) bool {
		id, ok := n.ID()
		return n.Type == htmltree.ElementNode && ok && id == ContentID
	})
	nodes.script = tree.Find(func(n *htmltree.Node) bool {
		id, ok := n.ID()
		return n.IsElement("script") && ok && id == ScriptID
	})

	return nodes
}

// synthesize inserts the missing markers into tree. Both parents are looked
// up before anything is inserted so a failure leaves the tree untouched.
func synthesize(tree *htmltree.Tree, nodes found) ([]string, error) {
	var head, body *htmltree.Node

	if nodes.content == nil {
		if head = tree.FindElement("head"); head == nil {
			return nil, missingParent("tar content anchor", "`<head>` element")
		}
	}
	if nodes.script == nil {
		if body = tree.FindElement("body"); body == nil {
			return nil, missingParent("script entry anchor", "`<body>` element")
		}
	}

	var added []string
	if head != nil {
		head.AppendChild(htmltree.NewMarker("template", idAttr(ContentID)))
		added = append(added, ContentID)
	}
	if body != nil {
		body.PrependChild(htmltree.NewMarker("script", idAttr(ScriptID)))
		added = append(added, ScriptID)
	}

	return added, nil
}

func idAttr(id string) htmltree.Attribute {
	return htmltree.Attribute{Key: "id", Val: id, Raw: id}
}

// endOfStartTag finds the '>' that closes el's opening tag. Literal '>'
// characters inside attribute names and values come first in the outer
// HTML, so N of them means the tag ends at the (N+1)th '>'.
func endOfStartTag(doc *srcdoc.Document, el *htmltree.Node) (int, error) {
	outer, err := doc.Span(el.Span)
	if err != nil {
		return 0, fmt.Errorf("root element span: %w", err)
	}

	embedded := 0
	for _, attr := range el.Attr {
		embedded += strings.Count(attr.Key, ">") + strings.Count(attr.Raw, ">")
	}

	text := doc.Slice(outer)
	pos := 0
	for range embedded + 1 {
		idx := strings.IndexByte(text[pos:], '>')
		if idx < 0 {
			return 0, fmt.Errorf("opening tag of <%s> at %s is not closed", el.Tag, el.Span.Start)
		}
		pos += idx + 1
	}

	return outer.Start + pos, nil
}
