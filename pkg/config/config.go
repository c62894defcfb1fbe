// Package config defines the build configuration types for wah-polyglot.
// These types are pure data structures; discovery and merging live in
// internal/configloader.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Reserved custom section names. Downstream stages look their data up by
// these exact names.
const (
	SectionStage0     = "wah_polyglot_stage0"
	SectionStage1     = "wah_polyglot_stage1"
	SectionStage1HTML = "wah_polyglot_stage1_html"
	SectionStage2     = "wah_polyglot_stage2"
	SectionStage3     = "wah_polyglot_stage3"

	// DefaultTrailingZipSection names the trailing archive section unless
	// configured otherwise.
	DefaultTrailingZipSection = "wah_polyglot_stage2_data"
)

// ExperimentalEnv gates the experimental edit loader. Only its presence
// matters.
const ExperimentalEnv = "WAH_POLYGLOT_EXPERIMENTAL"

// ReservedSections returns the section names extra sections may not use.
func ReservedSections() []string {
	return []string{SectionStage0, SectionStage1, SectionStage1HTML, SectionStage2, SectionStage3}
}

// IsReservedSection reports whether name is one of the stage section names.
func IsReservedSection(name string) bool {
	for _, reserved := range ReservedSections() {
		if name == reserved {
			return true
		}
	}
	return false
}

var (
	// ErrUnknownTarget is returned by ParseTarget for unrecognized names.
	ErrUnknownTarget = errors.New("unknown target selection")

	// ErrSectionSpec is returned by ParseExtraSection for malformed values.
	ErrSectionSpec = errors.New("expected `section_name,file_name`")
)

// Target selects the output format of a build.
type Target string

const (
	// TargetModule emits the layered WebAssembly module.
	TargetModule Target = "wasm"
	// TargetHTML emits a standalone HTML page carrying the module as a data URI.
	TargetHTML Target = "html"
	// TargetHTMLTar emits an HTML page that is also a tar archive.
	TargetHTMLTar Target = "html+tar"
)

// targetAliases maps accepted spellings to targets.
//
//nolint:gochecknoglobals // Read-only lookup table.
var targetAliases = map[string]Target{
	"wasm":      TargetModule,
	"wasm+html": TargetModule,
	"html":      TargetHTML,
	"html+tar":  TargetHTMLTar,
}

// ParseTarget resolves a target name. "wasm+html" is an alias of the module
// target: the module already carries an HTML prefix.
func ParseTarget(name string) (Target, error) {
	target, ok := targetAliases[name]
	if !ok {
		return "", fmt.Errorf("%w %s", ErrUnknownTarget, name)
	}
	return target, nil
}

// TargetNames returns every accepted target spelling.
func TargetNames() []string {
	return []string{"wasm", "wasm+html", "html", "html+tar"}
}

// IsValid returns true if t is a canonical target.
func (t Target) IsValid() bool {
	switch t {
	case TargetModule, TargetHTML, TargetHTMLTar:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return string(t)
}

// ExtraSection is a named custom section whose content is read from File.
type ExtraSection struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// ParseExtraSection parses the `name,file` form of --add-section. Only the
// first comma separates; file names may contain further commas.
func ParseExtraSection(value string) (ExtraSection, error) {
	name, file, ok := strings.Cut(value, ",")
	if !ok {
		return ExtraSection{}, fmt.Errorf("%w, got %q", ErrSectionSpec, value)
	}
	return ExtraSection{Name: name, File: file}, nil
}

// String renders the section in --add-section form.
func (s ExtraSection) String() string {
	return s.Name + "," + s.File
}

// Config is the resolved build configuration.
type Config struct {
	// Target selects the output format.
	Target Target `yaml:"target"`

	// IndexHTML is the bootstrap page. For the html+tar target it is the
	// template the archive is spliced into and is required.
	IndexHTML string `yaml:"index_html,omitempty"`

	// TrailingZip is a zip archive appended as the last custom section, or
	// embedded entry by entry for html+tar.
	TrailingZip string `yaml:"trailing_zip,omitempty"`

	// TrailingZipSection names the trailing archive section.
	TrailingZipSection string `yaml:"trailing_zip_section,omitempty"`

	// RootFS is a directory whose regular files are embedded for html+tar.
	RootFS string `yaml:"root_fs,omitempty"`

	// Stage3 is shorthand for an extra section named wah_polyglot_stage3.
	Stage3 string `yaml:"stage3,omitempty"`

	// Sections are extra custom sections, emitted in order.
	Sections []ExtraSection `yaml:"sections,omitempty"`

	// Edit selects the experimental hot-reload loader.
	Edit bool `yaml:"edit,omitempty"`

	// CLI-only fields (not loaded from config files)

	// Stage2 is the mandatory application payload.
	Stage2 string `yaml:"-"`

	// Wasm is the input module; empty reads standard input.
	Wasm string `yaml:"-"`

	// Out is the output path; empty writes standard output.
	Out string `yaml:"-"`

	// ForceTTY allows writing the artifact to a terminal.
	ForceTTY bool `yaml:"-"`

	// Summary prints a table of the emitted sections after the build.
	Summary bool `yaml:"-"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Target:             TargetModule,
		TrailingZipSection: DefaultTrailingZipSection,
	}
}

// TrailingSection returns the trailing archive section name, falling back to
// the default when unset.
func (c *Config) TrailingSection() string {
	if c.TrailingZipSection == "" {
		return DefaultTrailingZipSection
	}
	return c.TrailingZipSection
}
