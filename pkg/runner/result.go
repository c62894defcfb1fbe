package runner

import (
	"errors"

	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

var errNoConfig = errors.New("no configuration")

// Stats captures aggregate information about a build.
type Stats struct {
	// InputsRead is the number of distinct input files read.
	InputsRead int

	// InputBytes is the total size of the distinct inputs.
	InputBytes int64

	// RootFSFiles is the number of files read from the root filesystem.
	RootFSFiles int

	// SectionsEmitted is the number of sections in the layered module.
	SectionsEmitted int

	// EntriesEmbedded is the number of archive entries of html+tar output.
	EntriesEmbedded int

	// EntriesSkipped is the number of zip members and root filesystem files
	// left out.
	EntriesSkipped int

	// OutputBytes is the artifact size.
	OutputBytes int

	// Written is false when an existing output already held the artifact.
	Written bool
}

// Result is the outcome of a build.
type Result struct {
	// Build is the composed artifact.
	Build *polyglot.Result

	// Inputs lists the inputs in the order they were read.
	Inputs []Input

	// Output is the artifact path, or "-" for standard output.
	Output string

	// Backup is the path of the previous artifact, if one was kept.
	Backup string

	// Warnings are non-fatal findings about the inputs.
	Warnings []string

	Stats Stats
}

// HasWarnings reports whether any warnings were recorded.
func (r *Result) HasWarnings() bool {
	if r == nil {
		return false
	}
	return len(r.Warnings) > 0
}

func (r *Result) collectStats(in polyglot.Inputs) {
	seen := make(map[string]bool)
	for _, input := range r.Inputs {
		if seen[input.Info.Path] {
			continue
		}
		seen[input.Info.Path] = true
		r.Stats.InputsRead++
		r.Stats.InputBytes += input.Info.Size
	}

	r.Stats.RootFSFiles = len(in.RootFS)
	r.Stats.SectionsEmitted = len(r.Build.Sections)
	r.Stats.EntriesEmbedded = len(r.Build.Entries)
	r.Stats.EntriesSkipped = len(r.Build.Skipped)
	r.Stats.OutputBytes = len(r.Build.Bytes)
}
