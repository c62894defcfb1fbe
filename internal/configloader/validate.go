package configloader

import (
	"fmt"
	"strings"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Field is the path to the invalid field (e.g., "sections[1].name").
	Field string

	// Value is the invalid value.
	Value any

	// Message describes the validation error.
	Message string

	// FilePath is the config file containing the error (if known).
	FilePath string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	parts = append(parts, e.Message)

	return strings.Join(parts, ": ")
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	// Errors are validation failures that prevent loading.
	Errors []ValidationError

	// Warnings are non-fatal issues.
	Warnings []ValidationError
}

// Valid returns true if there are no errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// HasWarnings returns true if there are any warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// AllMessages returns all error and warning messages combined.
func (r *ValidationResult) AllMessages() []string {
	messages := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, e := range r.Errors {
		messages = append(messages, "error: "+e.Error())
	}
	for _, w := range r.Warnings {
		messages = append(messages, "warning: "+w.Error())
	}
	return messages
}

func (r *ValidationResult) fail(field string, value any, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warn(field string, value any, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a configuration for errors and warnings. experimental
// reports whether the experimental gate is open.
func Validate(cfg *config.Config, experimental bool) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		return result
	}

	if cfg.Target != "" && !cfg.Target.IsValid() {
		result.fail("target", cfg.Target, "unknown target selection %s; must be one of: %s",
			cfg.Target, strings.Join(config.TargetNames(), ", "))
	}

	if config.IsReservedSection(cfg.TrailingZipSection) {
		result.fail("trailing_zip_section", cfg.TrailingZipSection,
			"%q is reserved for a stage payload", cfg.TrailingZipSection)
	}

	if cfg.Edit && !experimental {
		result.fail("edit", cfg.Edit, "the edit loader is experimental; set %s to enable it", config.ExperimentalEnv)
	}

	if cfg.RootFS != "" && cfg.Target != config.TargetHTMLTar {
		result.warn("root_fs", cfg.RootFS, "only the html+tar target embeds a root filesystem; it will be ignored")
	}

	validateSections(cfg, result)

	return result
}

// validateSections checks extra section names and files.
func validateSections(cfg *config.Config, result *ValidationResult) {
	seen := make(map[string]int, len(cfg.Sections))

	for i, section := range cfg.Sections {
		field := fmt.Sprintf("sections[%d]", i)

		switch {
		case section.Name == "":
			result.fail(field+".name", section.Name, "section name must not be empty")
		case config.IsReservedSection(section.Name):
			result.fail(field+".name", section.Name, "%q is reserved for a stage payload", section.Name)
		case section.Name == cfg.TrailingSection() && cfg.TrailingZip != "":
			result.warn(field+".name", section.Name, "shares its name with the trailing archive section")
		}

		if section.File == "" {
			result.fail(field+".file", section.File, "section file must not be empty")
		}

		if prev, ok := seen[section.Name]; ok && section.Name != "" {
			result.warn(field+".name", section.Name, "duplicates sections[%d]; both are emitted", prev)
		}
		seen[section.Name] = i
	}
}

// ValidateWithFile validates configuration and includes file path in errors.
func ValidateWithFile(cfg *config.Config, experimental bool, filePath string) *ValidationResult {
	result := Validate(cfg, experimental)

	for i := range result.Errors {
		result.Errors[i].FilePath = filePath
	}
	for i := range result.Warnings {
		result.Warnings[i].FilePath = filePath
	}

	return result
}
