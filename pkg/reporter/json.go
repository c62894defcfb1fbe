package reporter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
	"github.com/yaklabco/wahpolyglot/pkg/runner"
)

// reportVersion is bumped when the JSON layout changes incompatibly.
const reportVersion = "1.0.0"

// JSONOutput is the top-level JSON structure.
type JSONOutput struct {
	Version     string        `json:"version"`
	Target      string        `json:"target"`
	Output      string        `json:"output"`
	Backup      string        `json:"backup,omitempty"`
	Written     bool          `json:"written"`
	Loader      string        `json:"loader,omitempty"`
	Inputs      []JSONInput   `json:"inputs"`
	Sections    []JSONSection `json:"sections"`
	Entries     []string      `json:"entries,omitempty"`
	Skipped     []string      `json:"skipped,omitempty"`
	Synthesized []string      `json:"synthesizedAnchors,omitempty"`
	Warnings    []string      `json:"warnings"`
	Summary     JSONSummary   `json:"summary"`
}

// JSONInput represents one input read by the build.
type JSONInput struct {
	Role     string `json:"role"`
	Name     string `json:"name,omitempty"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
	Kind     string `json:"kind,omitempty"`
	Rendered bool   `json:"rendered,omitempty"`
}

// JSONSection represents one section of the layered module. Name is empty
// for standard sections.
type JSONSection struct {
	Name string `json:"name,omitempty"`
	ID   byte   `json:"id"`
	Size int    `json:"size"`
}

// JSONSummary contains aggregate statistics.
type JSONSummary struct {
	InputsRead      int   `json:"inputsRead"`
	InputBytes      int64 `json:"inputBytes"`
	RootFSFiles     int   `json:"rootFsFiles"`
	SectionsEmitted int   `json:"sectionsEmitted"`
	EntriesEmbedded int   `json:"entriesEmbedded"`
	EntriesSkipped  int   `json:"entriesSkipped"`
	OutputBytes     int   `json:"outputBytes"`
}

// JSONReporter formats results as JSON.
type JSONReporter struct {
	opts Options
	bw   *bufio.Writer
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(opts Options) *JSONReporter {
	return &JSONReporter{
		opts: opts,
		bw:   bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

// Report implements Reporter.
func (r *JSONReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer func() {
		if flushErr := r.bw.Flush(); err == nil {
			err = flushErr
		}
	}()

	output := buildOutput(result)

	encoder := json.NewEncoder(r.bw)
	if !r.opts.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(output); err != nil {
		return 0, fmt.Errorf("encode JSON: %w", err)
	}

	return len(output.Warnings), nil
}

func buildOutput(result *runner.Result) *JSONOutput {
	output := &JSONOutput{
		Version:  reportVersion,
		Inputs:   make([]JSONInput, 0),
		Sections: make([]JSONSection, 0),
		Warnings: make([]string, 0),
	}

	if result == nil || result.Build == nil {
		return output
	}

	build := result.Build
	output.Target = build.Target.String()
	output.Output = result.Output
	output.Backup = result.Backup
	output.Written = result.Stats.Written
	if build.Loader != polyglot.LoaderNone {
		output.Loader = build.Loader.String()
	}

	for _, input := range result.Inputs {
		jsonInput := JSONInput{
			Role:     input.Role,
			Name:     input.Name,
			Kind:     string(input.Kind),
			Rendered: input.Rendered,
		}
		if input.Info != nil {
			jsonInput.Path = input.Info.Path
			jsonInput.Size = input.Info.Size
			jsonInput.SHA256 = input.Info.Digest()
		}
		output.Inputs = append(output.Inputs, jsonInput)
	}

	for _, section := range build.Sections {
		output.Sections = append(output.Sections, JSONSection{
			Name: section.Name,
			ID:   section.ID,
			Size: section.Size,
		})
	}

	output.Entries = build.Entries
	output.Skipped = build.Skipped
	output.Synthesized = build.Synthesized
	output.Warnings = append(output.Warnings, result.Warnings...)

	stats := result.Stats
	output.Summary = JSONSummary{
		InputsRead:      stats.InputsRead,
		InputBytes:      stats.InputBytes,
		RootFSFiles:     stats.RootFSFiles,
		SectionsEmitted: stats.SectionsEmitted,
		EntriesEmbedded: stats.EntriesEmbedded,
		EntriesSkipped:  stats.EntriesSkipped,
		OutputBytes:     stats.OutputBytes,
	}

	return output
}
