package cli

import (
	"errors"

	"github.com/yaklabco/wahpolyglot/internal/configloader"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

// Exit codes for wah-polyglot.
const (
	// ExitSuccess indicates the artifact was built.
	ExitSuccess = 0

	// ExitBuildFailed indicates the inputs could not be composed into an
	// artifact.
	ExitBuildFailed = 1

	// ExitInvalidUsage indicates invalid command-line usage.
	ExitInvalidUsage = 64

	// ExitConfigError indicates configuration file errors.
	ExitConfigError = 65

	// ExitInternalError indicates an internal error.
	ExitInternalError = 70

	// ExitIOError indicates file I/O errors.
	ExitIOError = 74
)

// UsageError marks errors caused by the command line itself.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ExitCodeFromError maps a command error to a process exit code.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var validation *configloader.ValidationError

	switch {
	case errors.As(err, &usage),
		errors.Is(err, ErrTerminalOutput),
		errors.Is(err, config.ErrUnknownTarget),
		errors.Is(err, config.ErrSectionSpec):
		return ExitInvalidUsage
	case errors.As(err, &validation),
		errors.Is(err, polyglot.ErrExperimentalDisabled),
		errors.Is(err, polyglot.ErrTemplateRequired),
		errors.Is(err, polyglot.ErrMissingStage2):
		return ExitConfigError
	case errors.Is(err, fsutil.ErrNotFound),
		errors.Is(err, fsutil.ErrPermissionDenied),
		errors.Is(err, fsutil.ErrIsDirectory):
		return ExitIOError
	default:
		return ExitBuildFailed
	}
}
