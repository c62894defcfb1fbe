package polyglot

import (
	"errors"
	"fmt"
)

var (
	// ErrAnchorOrder is returned when the content anchor does not end before
	// the script anchor starts.
	ErrAnchorOrder = errors.New("content anchor must end before the script anchor starts")

	// ErrExperimentalDisabled is returned when the edit loader is selected
	// without the experimental gate.
	ErrExperimentalDisabled = errors.New("the edit loader is experimental")

	// ErrPayloadTooLarge is returned when a module is too large to be carried
	// as a single data URI.
	ErrPayloadTooLarge = errors.New("module too large for a standalone HTML page")

	// ErrTemplateRequired is returned for html+tar builds without a template.
	ErrTemplateRequired = errors.New("the html+tar target embeds into the index HTML")

	// ErrMissingStage2 is returned when no stage2 payload was given.
	ErrMissingStage2 = errors.New("stage2 payload is required")
)

// UnsupportedFeatureError is returned when a target needs a capability that
// was left out of this build.
type UnsupportedFeatureError struct {
	// What names what was requested.
	What string

	// Feature names the missing capability.
	Feature string

	// Remedy suggests how to obtain a build that has it.
	Remedy string
}

// Error implements error.
func (e *UnsupportedFeatureError) Error() string {
	msg := fmt.Sprintf("using %s requires the feature `%s` which was not enabled during compilation", e.What, e.Feature)
	if e.Remedy != "" {
		msg += "; " + e.Remedy
	}
	return msg
}
