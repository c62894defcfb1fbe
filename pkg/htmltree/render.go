package htmltree

import "strings"

// Render serializes the tree. An unmodified tree renders to exactly the
// text it was parsed from.
func (t *Tree) Render() string {
	var sb strings.Builder
	t.Root.render(&sb)
	return sb.String()
}

// OuterHTML returns the source text of n including its descendants.
func (n *Node) OuterHTML() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n *Node) render(sb *strings.Builder) {
	sb.WriteString(n.Raw)
	for _, child := range n.Children {
		child.render(sb)
	}
	sb.WriteString(n.EndRaw)
}
