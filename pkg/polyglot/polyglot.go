// Package polyglot assembles artifacts that are a WebAssembly module and an
// HTML page at once, optionally also a tar archive.
//
// Every build first layers the stage payloads in front of the input module
// as custom sections (see Composer.Layer). The result is then rendered for
// the selected target: the module itself, a standalone page carrying the
// module as a data URI, or a page whose prefix is a tar archive of the
// module and any extra files.
package polyglot

import (
	"context"
	"fmt"
	"os"

	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/anchor"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/htmltar"
	"github.com/yaklabco/wahpolyglot/pkg/wasmsect"
)

// BootPath is the archive name of the assembled module in html+tar output.
const BootPath = "boot/wah-init.wasm"

// Payload is a named input file held in memory. Name is used in messages
// only.
type Payload struct {
	Name string
	Data []byte
}

// Section is an extra custom section.
type Section struct {
	Name string
	Data []byte
}

// Entry is a file embedded into html+tar output.
type Entry = htmltar.Entry

// Inputs collects everything one build consumes. Files are read by the
// caller, once, before composition.
type Inputs struct {
	// Stage2 is the application payload (required).
	Stage2 []byte

	// Module is the input module whose sections are passed through.
	Module []byte

	// IndexHTML is the bootstrap page; required for html+tar.
	IndexHTML *Payload

	// Stage3 is queued as a named section ahead of Sections.
	Stage3 []byte

	// Sections are emitted in order after Stage3.
	Sections []Section

	// TrailingZip is appended as the last section, or unpacked into
	// entries for html+tar.
	TrailingZip *Payload

	// TrailingSection names the trailing archive section. Empty selects
	// config.DefaultTrailingZipSection.
	TrailingSection string

	// RootFS entries are embedded after the zip entries for html+tar.
	RootFS []Entry

	Target config.Target

	// Edit selects the experimental loader.
	Edit bool
}

// SectionInfo describes one emitted section.
type SectionInfo struct {
	Name string
	// ID is the section id; 0 for custom sections.
	ID   byte
	Size int
}

// Result is a composed artifact.
type Result struct {
	Bytes  []byte
	Target config.Target

	// Module is the layered module. For the module target it equals Bytes.
	Module []byte

	Sections []SectionInfo

	// Entries lists the archive names embedded by html+tar, in order.
	Entries []string

	// Skipped lists zip members and root filesystem files that could not
	// be embedded.
	Skipped []string

	// Synthesized names anchors inserted into the html+tar template.
	Synthesized []string

	// Loader is the data URI loader chosen for the standalone page.
	Loader Loader
}

// AnchorResolver locates anchors in an html+tar template.
type AnchorResolver interface {
	Resolve(text string) (*anchor.Resolution, error)
}

// ArchiveEncoder renders html+tar records. *htmltar.Engine implements it.
type ArchiveEncoder interface {
	StartOfFile(head []byte, insertAt int) (htmltar.Start, error)
	Insert(entry htmltar.Entry) (htmltar.Record, error)
	Continue(entry htmltar.Entry) (htmltar.Record, error)
	EOF() (htmltar.Record, error)
}

// Composer builds artifacts. The zero value is not usable; use NewComposer.
type Composer struct {
	Splitter   wasmsect.Splitter
	Resolver   AnchorResolver
	NewEncoder func() ArchiveEncoder

	// LookupEnv reads the experimental gate.
	LookupEnv func(key string) (string, bool)
}

// NewComposer returns a Composer using the packages of this module.
func NewComposer() *Composer {
	return &Composer{
		Splitter:   wasmsect.Codec{},
		Resolver:   anchor.New(nil),
		NewEncoder: func() ArchiveEncoder { return htmltar.NewEngine() },
		LookupEnv:  os.LookupEnv,
	}
}

// Compose builds the artifact for in.Target.
func (c *Composer) Compose(ctx context.Context, in Inputs) (*Result, error) {
	logger := logging.FromContext(ctx)

	target := in.Target
	if target == "" {
		target = config.TargetModule
	}
	if !target.IsValid() {
		return nil, fmt.Errorf("%w %s", config.ErrUnknownTarget, target)
	}

	module, sections, err := c.Layer(ctx, in)
	if err != nil {
		return nil, err
	}

	result := &Result{Target: target, Module: module, Sections: sections}

	switch target {
	case config.TargetModule:
		result.Bytes = module
	case config.TargetHTML:
		page, loader, err := RenderHTML(module)
		if err != nil {
			return nil, err
		}
		result.Bytes, result.Loader = page, loader
		logger.Debug("rendered standalone page", logging.FieldLoader, loader, logging.FieldBytes, len(page))
	case config.TargetHTMLTar:
		if err := c.renderHTMLTar(ctx, in, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}
