package htmltree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yaklabco/wahpolyglot/pkg/srcdoc"
)

// TokenizerParser builds trees from the golang.org/x/net/html tokenizer.
//
// It does not run the HTML5 tree construction algorithm. Elements nest as
// written, with a handful of implied end tags (a body start tag closes an
// open head, a p or li closes a sibling of the same name). Elements left
// open at the end of input extend to the end of the document.
type TokenizerParser struct{}

// Parse parses text with the default TokenizerParser.
func Parse(text string) (*Tree, error) {
	return TokenizerParser{}.Parse(text)
}

// Parse implements Parser.
func (TokenizerParser) Parse(text string) (*Tree, error) {
	b := &builder{
		doc:  srcdoc.New(text),
		root: &Node{Type: DocumentNode},
	}
	b.root.Span = b.doc.SpanOf(srcdoc.Range{Start: 0, End: len(text)})

	tokenizer := html.NewTokenizer(strings.NewReader(text))

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			if errors.Is(tokenizer.Err(), io.EOF) {
				break
			}
			return nil, fmt.Errorf("tokenize at byte %d: %w", b.offset, tokenizer.Err())
		}

		raw := string(tokenizer.Raw())
		start := b.offset
		b.offset += len(raw)

		switch tokenType {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			b.startTag(string(name), raw, start, tokenType == html.SelfClosingTagToken)
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			b.endTag(string(name), raw, start)
		case html.CommentToken:
			b.leaf(CommentNode, raw, start)
		case html.DoctypeToken:
			b.leaf(DoctypeNode, raw, start)
		default:
			b.leaf(TextNode, raw, start)
		}
	}

	// A tag cut off by the end of input yields no token; keep its bytes as text.
	if b.offset < len(text) {
		start := b.offset
		b.offset = len(text)
		b.leaf(TextNode, text[start:], start)
	}

	for len(b.open) > 0 {
		b.pop(len(text))
	}

	return &Tree{Root: b.root}, nil
}

type openElement struct {
	node  *Node
	start int
}

type builder struct {
	doc    *srcdoc.Document
	root   *Node
	open   []openElement
	offset int
}

func (b *builder) parent() *Node {
	if len(b.open) == 0 {
		return b.root
	}
	return b.open[len(b.open)-1].node
}

func (b *builder) span(start, end int) srcdoc.TagSpan {
	return b.doc.SpanOf(srcdoc.Range{Start: start, End: end})
}

func (b *builder) leaf(typ NodeType, raw string, start int) {
	b.parent().AppendChild(&Node{
		Type: typ,
		Raw:  raw,
		Span: b.span(start, b.offset),
	})
}

func (b *builder) startTag(name, raw string, start int, selfClosing bool) {
	b.closeImplied(name, start)

	node := &Node{
		Type: ElementNode,
		Tag:  name,
		Attr: parseAttributes(raw),
		Raw:  raw,
	}
	b.parent().AppendChild(node)

	tag := atom.Lookup([]byte(name))
	if isVoid(tag) || (selfClosing && !isRawText(tag)) {
		node.Span = b.span(start, b.offset)
		return
	}

	b.open = append(b.open, openElement{node: node, start: start})
}

func (b *builder) endTag(name, raw string, start int) {
	for idx := len(b.open) - 1; idx >= 0; idx-- {
		if b.open[idx].node.Tag != name {
			continue
		}

		// Everything opened after the match ends where the end tag begins.
		for len(b.open) > idx+1 {
			b.pop(start)
		}

		b.open[idx].node.EndRaw = raw
		b.pop(b.offset)
		return
	}

	b.leaf(StrayNode, raw, start)
}

// closeImplied ends open elements that a start tag named name implicitly closes.
func (b *builder) closeImplied(name string, start int) {
	switch name {
	case "body":
		for idx := len(b.open) - 1; idx >= 0; idx-- {
			if b.open[idx].node.Tag == "head" {
				for len(b.open) > idx {
					b.pop(start)
				}
				return
			}
		}
	case "p", "li", "option", "dt", "dd":
		if len(b.open) > 0 && b.parent().Tag == name {
			b.pop(start)
		}
	}
}

func (b *builder) pop(end int) {
	top := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]
	top.node.Span = b.span(top.start, end)
}

func isVoid(tag atom.Atom) bool {
	switch tag {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Keygen, atom.Link, atom.Meta, atom.Param, atom.Source,
		atom.Track, atom.Wbr:
		return true
	default:
		return false
	}
}

// isRawText reports whether the tokenizer treats content after the tag as
// raw text, even when the start tag is written self-closing.
func isRawText(tag atom.Atom) bool {
	switch tag {
	case atom.Iframe, atom.Noembed, atom.Noframes, atom.Noscript, atom.Plaintext,
		atom.Script, atom.Style, atom.Textarea, atom.Title, atom.Xmp:
		return true
	default:
		return false
	}
}
