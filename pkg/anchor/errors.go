package anchor

import "fmt"

// MissingKind distinguishes the causes of a MissingNodeError.
type MissingKind int

const (
	// MissingRoot means the document has no html element.
	MissingRoot MissingKind = iota + 1
	// MissingContent means no element carries ContentID.
	MissingContent
	// MissingScript means no script element carries ScriptID.
	MissingScript
	// MissingParent means a marker had to be synthesized but its head or
	// body parent does not exist.
	MissingParent
)

// String returns the kind name.
func (k MissingKind) String() string {
	switch k {
	case MissingRoot:
		return "root"
	case MissingContent:
		return "content"
	case MissingScript:
		return "script"
	case MissingParent:
		return "parent"
	default:
		return fmt.Sprintf("MissingKind(%d)", int(k))
	}
}

// MissingNodeError reports an element the template lacks.
type MissingNodeError struct {
	Kind MissingKind

	// Content describes what was to be inserted at the node.
	Content string

	// SearchedFor describes the node that was looked for.
	SearchedFor string
}

// Error implements error.
func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("missing node to insert %s, searched for %s", e.Content, e.SearchedFor)
}

func missingRoot() error {
	return &MissingNodeError{
		Kind:        MissingRoot,
		Content:     "begin of tar file",
		SearchedFor: "starting `<html>` tag",
	}
}

func missingContent() error {
	return &MissingNodeError{
		Kind:        MissingContent,
		Content:     "tar contents",
		SearchedFor: fmt.Sprintf("tag with id `%s`", ContentID),
	}
}

func missingScript() error {
	return &MissingNodeError{
		Kind:        MissingScript,
		Content:     "script entry point",
		SearchedFor: fmt.Sprintf("`<script>` tag with id `%s`", ScriptID),
	}
}

func missingParent(content, parent string) error {
	return &MissingNodeError{
		Kind:        MissingParent,
		Content:     content,
		SearchedFor: parent,
	}
}
