package pretty

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
	"github.com/yaklabco/wahpolyglot/pkg/runner"
)

// Table formatting constants.
const (
	reservedSymbol   = "*"
	tablePadding     = 2
	minIndexWidth    = 3
	minNameWidth     = 24
	minKindWidth     = 8
	minSizeWidth     = 10
	heavySeparator   = "="
	lightSeparator   = "-"
	defaultTermWidth = 100
)

// TableRow is one row of the section table.
type TableRow struct {
	Index    int
	Name     string
	Kind     string
	Size     int
	Reserved bool
}

// TableFormatter formats build results as styled tables.
type TableFormatter struct {
	styles    *Styles
	termWidth int
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(styles *Styles, termWidth int) *TableFormatter {
	if termWidth <= 0 {
		termWidth = defaultTermWidth
	}
	return &TableFormatter{styles: styles, termWidth: termWidth}
}

type columnWidths struct {
	index int
	name  int
	kind  int
	size  int
}

var standardSections = []string{
	1: "type", 2: "import", 3: "function", 4: "table", 5: "memory", 6: "global",
	7: "export", 8: "start", 9: "element", 10: "code", 11: "data", 12: "data count", 13: "tag",
}

func standardSectionName(id byte) string {
	if int(id) < len(standardSections) && standardSections[id] != "" {
		return "(" + standardSections[id] + ")"
	}
	return "(unknown)"
}

// SectionRows converts the emitted sections of a build into table rows.
func SectionRows(sections []polyglot.SectionInfo) []TableRow {
	rows := make([]TableRow, 0, len(sections))
	for idx, section := range sections {
		row := TableRow{Index: idx, Size: section.Size}
		if section.ID == 0 {
			row.Name = section.Name
			row.Kind = "custom"
			row.Reserved = config.IsReservedSection(section.Name)
		} else {
			row.Name = standardSectionName(section.ID)
			row.Kind = "id " + strconv.Itoa(int(section.ID))
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatTable formats the sections of a build, followed by the archive
// entries of html+tar output.
func (t *TableFormatter) FormatTable(result *runner.Result) string {
	if result == nil || result.Build == nil || len(result.Build.Sections) == 0 {
		return ""
	}

	rows := SectionRows(result.Build.Sections)
	widths := t.calculateColumnWidths(rows)

	var builder strings.Builder

	builder.WriteString(t.formatHeader(widths))
	builder.WriteString("\n")
	builder.WriteString(t.formatSeparator(widths, heavySeparator))
	builder.WriteString("\n")

	for _, row := range rows {
		builder.WriteString(t.formatRow(row, widths))
		builder.WriteString("\n")
	}

	builder.WriteString(t.formatSeparator(widths, heavySeparator))
	builder.WriteString("\n")
	builder.WriteString(t.formatLegend())
	builder.WriteString("\n")

	if entries := result.Build.Entries; len(entries) > 0 {
		builder.WriteString("\n")
		builder.WriteString(t.styles.TableHeader.Render(fmt.Sprintf(" ARCHIVE ENTRIES (%d)", len(entries))))
		builder.WriteString("\n")
		builder.WriteString(t.formatSeparator(widths, lightSeparator))
		builder.WriteString("\n")
		for _, name := range entries {
			builder.WriteString(" " + truncateString(name, t.maxNameWidth()) + "\n")
		}
		for _, name := range result.Build.Skipped {
			builder.WriteString(" " + t.styles.Warning.Render("skipped") + " " + truncateString(name, t.maxNameWidth()) + "\n")
		}
	}

	return builder.String()
}

func (t *TableFormatter) maxNameWidth() int {
	return max(minNameWidth, t.termWidth-minIndexWidth-minKindWidth-minSizeWidth-tablePadding*4)
}

// calculateColumnWidths determines column widths based on content, capping
// the name column to the terminal width.
func (t *TableFormatter) calculateColumnWidths(rows []TableRow) columnWidths {
	widths := columnWidths{
		index: minIndexWidth,
		name:  minNameWidth,
		kind:  minKindWidth,
		size:  minSizeWidth,
	}

	for _, row := range rows {
		widths.index = max(widths.index, len(strconv.Itoa(row.Index)))
		widths.name = max(widths.name, lipgloss.Width(row.Name)+len(reservedSymbol)+1)
		widths.kind = max(widths.kind, len(row.Kind))
		widths.size = max(widths.size, len(FormatSize(int64(row.Size))))
	}

	fixed := widths.index + widths.kind + widths.size + tablePadding*4
	if widths.name+fixed > t.termWidth {
		widths.name = max(minNameWidth, t.termWidth-fixed)
	}
	return widths
}

func (t *TableFormatter) formatHeader(widths columnWidths) string {
	header := fmt.Sprintf(" %*s  %-*s  %-*s  %*s",
		widths.index, "#",
		widths.name, "SECTION",
		widths.kind, "KIND",
		widths.size, "SIZE",
	)
	return t.styles.TableHeader.Render(header)
}

func (t *TableFormatter) formatSeparator(widths columnWidths, char string) string {
	total := widths.index + widths.name + widths.kind + widths.size + tablePadding*4
	return t.styles.TableSeparator.Render(strings.Repeat(char, total))
}

func (t *TableFormatter) formatRow(row TableRow, widths columnWidths) string {
	name := truncateString(row.Name, widths.name-len(reservedSymbol)-1)
	style := t.styles.Section
	if row.Reserved {
		name += " " + reservedSymbol
		style = t.styles.Reserved
	}

	return fmt.Sprintf(" %*d  %s  %-*s  %s",
		widths.index, row.Index,
		style.Render(padRight(name, widths.name)),
		widths.kind, row.Kind,
		t.styles.Size.Render(fmt.Sprintf("%*s", widths.size, FormatSize(int64(row.Size)))),
	)
}

func (t *TableFormatter) formatLegend() string {
	return t.styles.TableLegend.Render(" " + reservedSymbol + " reserved loader section")
}

func padRight(s string, width int) string {
	if pad := width - lipgloss.Width(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(str string, maxLen int) string {
	if len(str) <= maxLen {
		return str
	}
	if maxLen <= 3 {
		return str[:maxLen]
	}
	return str[:maxLen-3] + "..."
}
