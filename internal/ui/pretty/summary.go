package pretty

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
	"github.com/yaklabco/wahpolyglot/pkg/runner"
)

const summaryDividerWidth = 40

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

// FormatSummaryOneLine formats a build as a single line.
// Example: "html+tar artifact, 1.2 MiB, 9 sections, 3 entries -> site.html".
func (s *Styles) FormatSummaryOneLine(result *runner.Result) string {
	if result == nil || result.Build == nil {
		return s.Failure.Render("No artifact built") + "\n"
	}

	parts := []string{
		s.Target.Render(result.Build.Target.String()) + " artifact",
		FormatSize(int64(result.Stats.OutputBytes)),
		plural(result.Stats.SectionsEmitted, "section", "sections"),
	}
	if result.Stats.EntriesEmbedded > 0 {
		parts = append(parts, plural(result.Stats.EntriesEmbedded, "entry", "entries"))
	}
	if result.HasWarnings() {
		parts = append(parts, s.Warning.Render(plural(len(result.Warnings), "warning", "warnings")))
	}

	line := strings.Join(parts, ", ")
	if result.Output != "" {
		line += " -> " + s.FilePath.Render(result.Output)
	}
	if !result.Stats.Written {
		line += s.Dim.Render(" (unchanged)")
	}
	return line + "\n"
}

// FormatSummary formats a build as a summary block.
func (s *Styles) FormatSummary(result *runner.Result) string {
	var builder strings.Builder

	builder.WriteString("\n")
	builder.WriteString(s.SummaryTitle.Render("Summary"))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("-", summaryDividerWidth))
	builder.WriteString("\n")

	if result == nil || result.Build == nil {
		builder.WriteString(s.Failure.Render("No artifact built"))
		builder.WriteString("\n")
		return builder.String()
	}

	stats := result.Stats

	builder.WriteString("  Target:            " + s.Target.Render(result.Build.Target.String()) + "\n")
	builder.WriteString("  Inputs read:       " +
		s.SummaryValue.Render(fmt.Sprintf("%d (%s)", stats.InputsRead, FormatSize(stats.InputBytes))) + "\n")
	builder.WriteString("  Sections:          " + s.SummaryValue.Render(strconv.Itoa(stats.SectionsEmitted)) + "\n")

	if stats.EntriesEmbedded > 0 {
		builder.WriteString("  Archive entries:   " + s.SummaryValue.Render(strconv.Itoa(stats.EntriesEmbedded)) + "\n")
	}
	if stats.RootFSFiles > 0 {
		builder.WriteString("  Root fs files:     " + s.SummaryValue.Render(strconv.Itoa(stats.RootFSFiles)) + "\n")
	}
	if stats.EntriesSkipped > 0 {
		builder.WriteString("  Skipped entries:   " + s.Warning.Render(strconv.Itoa(stats.EntriesSkipped)) + "\n")
	}
	if len(result.Build.Synthesized) > 0 {
		builder.WriteString("  Added anchors:     " +
			s.Dim.Render(strings.Join(result.Build.Synthesized, ", ")) + "\n")
	}
	if result.Build.Loader != polyglot.LoaderNone {
		builder.WriteString("  Data URI loader:   " + s.SummaryValue.Render(result.Build.Loader.String()) + "\n")
	}

	builder.WriteString("  Output:            " + s.FilePath.Render(result.Output) +
		s.Dim.Render(" ("+FormatSize(int64(stats.OutputBytes))+")") + "\n")
	if result.Backup != "" {
		builder.WriteString("  Backup:            " + s.Dim.Render(result.Backup) + "\n")
	}

	for _, warning := range result.Warnings {
		builder.WriteString("  " + s.Warning.Render("warning") + "  " + warning + "\n")
	}

	builder.WriteString("\n")

	switch {
	case result.HasWarnings():
		builder.WriteString(s.Warning.Render("Build completed with warnings"))
	case !stats.Written:
		builder.WriteString(s.Success.Render("Build up to date"))
	default:
		builder.WriteString(s.Success.Render("Build succeeded"))
	}
	builder.WriteString("\n")

	return builder.String()
}
