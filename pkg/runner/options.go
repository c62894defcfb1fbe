// Package runner turns a resolved configuration into an artifact: it reads
// every input once, composes the artifact and writes it out.
package runner

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

// Options controls one build.
type Options struct {
	// Config is the resolved configuration for this build.
	Config *config.Config

	// WorkingDir is the base directory used to resolve relative paths.
	// If empty, the current process working directory is used.
	WorkingDir string

	// Stdin supplies the module when Config.Wasm is empty or "-".
	Stdin io.Reader

	// Stdout receives the artifact when Config.Out is empty or "-".
	Stdout io.Writer

	// Jobs controls the number of concurrent root filesystem readers.
	// 0 or negative means "auto" (runtime.NumCPU()).
	Jobs int

	// MarkdownExtensions select index pages rendered from Markdown.
	// Defaults to DefaultMarkdownExtensions().
	MarkdownExtensions []string

	// Backup keeps the previous artifact next to the output.
	Backup bool
}

// DefaultMarkdownExtensions returns the extensions treated as Markdown.
func DefaultMarkdownExtensions() []string {
	return []string{".md", ".markdown"}
}

func (o Options) effectiveMarkdownExtensions() []string {
	if len(o.MarkdownExtensions) == 0 {
		return DefaultMarkdownExtensions()
	}
	return o.MarkdownExtensions
}

func (o Options) stdin() io.Reader {
	if o.Stdin == nil {
		return os.Stdin
	}
	return o.Stdin
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// hasMatchingExtension checks if the file has one of extensions.
func hasMatchingExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
