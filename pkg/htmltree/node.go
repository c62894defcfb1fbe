// Package htmltree builds a source-preserving HTML element tree.
//
// Unlike a browser-grade parser, the tree keeps every byte of the input in
// exactly one node, so rendering an unmodified tree reproduces the document
// byte for byte. Each parsed element carries the (line, column) span of its
// full outer extent. Markers may be inserted into the tree; rendering then
// yields the original text with the markers spliced in.
package htmltree

import (
	"strings"

	"github.com/yaklabco/wahpolyglot/pkg/srcdoc"
)

// NodeType identifies the kind of a Node.
type NodeType int

const (
	// DocumentNode is the root of every tree.
	DocumentNode NodeType = iota
	// ElementNode is a start tag together with its content and end tag.
	ElementNode
	// TextNode holds character data, including raw text of script elements.
	TextNode
	// CommentNode holds a comment, delimiters included.
	CommentNode
	// DoctypeNode holds a doctype declaration.
	DoctypeNode
	// StrayNode holds an end tag that closed no open element.
	StrayNode
)

// Attribute is one attribute of a start tag.
type Attribute struct {
	// Key is the lowercased attribute name.
	Key string
	// Val is the attribute value with character references resolved.
	Val string
	// Raw is the value exactly as written in the source, without quotes.
	Raw string
}

// Node is an element or a run of non-element source text.
type Node struct {
	Type NodeType

	// Tag is the lowercased element name. Empty for non-elements.
	Tag string

	// Attr lists the attributes of the start tag, in source order.
	Attr []Attribute

	// Raw is the source text of the start tag, or of the whole node for
	// non-elements.
	Raw string

	// EndRaw is the source text of the end tag. Empty for void elements and
	// elements closed implicitly.
	EndRaw string

	// Span is the outer extent in the parsed source. Inserted nodes have a
	// zero span.
	Span srcdoc.TagSpan

	Parent   *Node
	Children []*Node
}

// Tree is a parsed document.
type Tree struct {
	Root *Node
}

// Parser turns document text into a Tree.
type Parser interface {
	Parse(text string) (*Tree, error)
}

// AttrVal returns the resolved value of the attribute named key.
func (n *Node) AttrVal(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// ID returns the value of the id attribute, if any.
func (n *Node) ID() (string, bool) {
	return n.AttrVal("id")
}

// IsElement reports whether n is an element with the given tag name.
// The comparison is case-insensitive.
func (n *Node) IsElement(tag string) bool {
	return n.Type == ElementNode && strings.EqualFold(n.Tag, tag)
}

// AppendChild adds child as the last child of n.
func (n *Node) AppendChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// PrependChild adds child as the first child of n.
func (n *Node) PrependChild(child *Node) {
	child.Parent = n
	n.Children = append([]*Node{child}, n.Children...)
}

// NewMarker returns an empty element, not yet attached, that renders as
// <tag attrs...></tag>.
func NewMarker(tag string, attrs ...Attribute) *Node {
	var raw strings.Builder
	raw.WriteByte('<')
	raw.WriteString(tag)
	for _, attr := range attrs {
		raw.WriteByte(' ')
		raw.WriteString(attr.Key)
		raw.WriteString(`="`)
		raw.WriteString(attr.Raw)
		raw.WriteByte('"')
	}
	raw.WriteByte('>')

	return &Node{
		Type:   ElementNode,
		Tag:    strings.ToLower(tag),
		Attr:   attrs,
		Raw:    raw.String(),
		EndRaw: "</" + tag + ">",
	}
}

// Find returns the first node, in document order, for which match returns true.
// Document order is pre-order with siblings visited left to right.
func (t *Tree) Find(match func(*Node) bool) *Node {
	stack := []*Node{t.Root}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if match(top) {
			return top
		}

		// Push in reverse so the leftmost child is popped first.
		for idx := len(top.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, top.Children[idx])
		}
	}

	return nil
}

// FindElement returns the first element with the given tag name.
func (t *Tree) FindElement(tag string) *Node {
	return t.Find(func(n *Node) bool { return n.IsElement(tag) })
}

// Walk visits every node in document order until fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	t.Find(func(n *Node) bool { return !fn(n) })
}
