// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

// Field name constants for structured logging.
// Using constants prevents typos and enables IDE autocomplete.
const (
	// Common fields.
	FieldError      = "error"
	FieldPath       = "path"
	FieldInput      = "input"
	FieldOutput     = "output"
	FieldWorkingDir = "working_dir"
	FieldConfig     = "config"

	// Build fields.
	FieldTarget   = "target"
	FieldSection  = "section"
	FieldSections = "sections"
	FieldBytes    = "bytes"
	FieldEntry    = "entry"
	FieldEntries  = "entries"
	FieldLoader   = "loader"
	FieldLanguage = "language"

	// Anchor fields.
	FieldAnchor    = "anchor"
	FieldPasses    = "passes"
	FieldInsertion = "insertion_point"

	// Version fields.
	FieldVersion = "version"
	FieldCommit  = "commit"
	FieldBuilt   = "built"
)
