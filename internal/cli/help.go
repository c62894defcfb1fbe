package cli

import (
	"cmp"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yaklabco/wahpolyglot/internal/ui/pretty"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

// flagGroupAnnotation files a flag under one of the help sections.
const flagGroupAnnotation = "wahpolyglot_group"

// Flag groups of the build command, in help order.
const (
	groupInputs       = "Inputs"
	groupArchive      = "Archive"
	groupOutput       = "Output"
	groupExperimental = "Experimental"
)

//nolint:gochecknoglobals // help layout tables
var (
	flagGroups = []string{groupInputs, groupArchive, groupOutput, groupExperimental}

	targetHelp = []struct {
		target  config.Target
		alias   string
		summary string
	}{
		{config.TargetModule, "wasm+html", "a module whose first section reads as an HTML document"},
		{config.TargetHTML, "", "a standalone page carrying the module as a data URI"},
		{config.TargetHTMLTar, "", "the index page with every file spliced in as a tar archive"},
	}
)

// setFlagGroup files the named flags under group.
func setFlagGroup(flags *pflag.FlagSet, group string, names ...string) {
	for _, name := range names {
		_ = flags.SetAnnotation(name, flagGroupAnnotation, []string{group})
	}
}

type helpStyles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	command lipgloss.Style
	flag    lipgloss.Style
	value   lipgloss.Style
	target  lipgloss.Style
	dim     lipgloss.Style
}

func newHelpStyles(colorEnabled bool) helpStyles {
	if !colorEnabled {
		plain := lipgloss.NewStyle()
		return helpStyles{plain, plain, plain, plain, plain, plain, plain}
	}
	return helpStyles{
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		heading: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		command: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		flag:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		target:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// helpRenderer writes the help and usage screens of one command.
type helpRenderer struct {
	styles helpStyles
	width  int
}

func newHelpRenderer(cmd *cobra.Command) *helpRenderer {
	mode := "auto"
	if flag := cmd.Root().PersistentFlags().Lookup("color"); flag != nil {
		mode = flag.Value.String()
	}
	out := cmd.OutOrStdout()
	return &helpRenderer{
		styles: newHelpStyles(pretty.IsColorEnabled(mode, out)),
		width:  terminalWidth(out),
	}
}

// applyHelp installs the help and usage screens on cmd; subcommands
// inherit them.
func applyHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(func(command *cobra.Command, _ []string) {
		r := newHelpRenderer(command)
		if err := r.write(command.OutOrStdout(), r.help(command)); err != nil {
			command.PrintErrln(err)
		}
	})
	cmd.SetUsageFunc(func(command *cobra.Command) error {
		r := newHelpRenderer(command)
		return r.write(command.OutOrStdout(), r.usage(command))
	})
}

func (r *helpRenderer) write(w io.Writer, text string) error {
	_, err := io.WriteString(w, text)
	return err
}

func (r *helpRenderer) help(cmd *cobra.Command) string {
	var b strings.Builder

	b.WriteString(r.styles.title.Render(cmd.CommandPath()))
	if cmd.Version != "" {
		b.WriteString(" " + r.styles.dim.Render(cmd.Version))
	}
	b.WriteString("\n\n")

	if desc := strings.TrimSpace(cmp.Or(cmd.Long, cmd.Short)); desc != "" {
		b.WriteString(desc + "\n\n")
	}

	b.WriteString(r.usage(cmd))
	return b.String()
}

func (r *helpRenderer) usage(cmd *cobra.Command) string {
	var sections []string

	add := func(heading, body string) {
		if body != "" {
			sections = append(sections, r.styles.heading.Render(heading)+"\n"+body)
		}
	}

	usage := ""
	if cmd.Runnable() {
		usage = "  " + r.styles.command.Render(cmd.UseLine())
	}
	if cmd.HasAvailableSubCommands() {
		usage += "\n  " + r.styles.command.Render(cmd.CommandPath()+" [command]")
	}
	add("Usage:", strings.TrimPrefix(usage, "\n"))

	if cmd == cmd.Root() {
		add("Targets:", r.targets())
	}
	if cmd.HasExample() {
		add("Examples:", r.styles.dim.Render(cmd.Example))
	}
	add("Commands:", r.commands(cmd))

	local, global := r.splitFlags(cmd)
	for _, group := range flagGroups {
		add(group+":", r.flagUsages(local[group]))
	}
	add("Flags:", r.flagUsages(local[""]))
	add("Global Flags:", r.flagUsages(global))

	out := strings.Join(sections, "\n\n") + "\n"
	if cmd.HasAvailableSubCommands() {
		out += "\nUse \"" + r.styles.command.Render(cmd.CommandPath()+" [command] --help") +
			"\" for more information about a command.\n"
	}
	return out
}

func (r *helpRenderer) targets() string {
	width := 0
	for _, entry := range targetHelp {
		width = max(width, len(entry.target))
	}

	lines := make([]string, 0, len(targetHelp))
	for _, entry := range targetHelp {
		name := string(entry.target)
		line := "  " + r.styles.target.Render(name) + strings.Repeat(" ", width-len(name)+3) + entry.summary
		if entry.alias != "" {
			line += " " + r.styles.dim.Render("(alias: "+entry.alias+")")
		}
		if entry.target == config.TargetHTMLTar && !polyglot.HTMLTarSupported {
			line += " " + r.styles.dim.Render("(not in this build)")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (r *helpRenderer) commands(cmd *cobra.Command) string {
	var lines []string
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() && sub.Name() != "help" {
			continue
		}
		name := sub.Name() + strings.Repeat(" ", max(sub.NamePadding()-len(sub.Name()), 0))
		lines = append(lines, "  "+r.styles.command.Render(name)+" "+sub.Short)
	}
	return strings.Join(lines, "\n")
}

// splitFlags sorts the visible flags of cmd into its groups and the flags
// shared with every command.
func (r *helpRenderer) splitFlags(cmd *cobra.Command) (map[string]*pflag.FlagSet, *pflag.FlagSet) {
	local := make(map[string]*pflag.FlagSet)
	global := pflag.NewFlagSet("global", pflag.ContinueOnError)

	cmd.LocalFlags().VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden {
			return
		}
		if cmd.PersistentFlags().Lookup(flag.Name) != nil && cmd == cmd.Root() {
			global.AddFlag(flag)
			return
		}

		group := ""
		if values := flag.Annotations[flagGroupAnnotation]; len(values) > 0 {
			group = values[0]
		}
		set, ok := local[group]
		if !ok {
			set = pflag.NewFlagSet(group, pflag.ContinueOnError)
			local[group] = set
		}
		set.AddFlag(flag)
	})

	cmd.InheritedFlags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Hidden {
			global.AddFlag(flag)
		}
	})

	return local, global
}

func (r *helpRenderer) flagUsages(flags *pflag.FlagSet) string {
	if flags == nil {
		return ""
	}
	usages := strings.TrimRight(flags.FlagUsagesWrapped(r.width), "\n")
	if usages == "" {
		return ""
	}

	lines := strings.Split(usages, "\n")
	for i, line := range lines {
		lines[i] = r.styleFlagLine(line)
	}
	return strings.Join(lines, "\n")
}

// styleFlagLine colors the "-o, --out string" part of a usage line.
// Wrapped continuation lines pass through unchanged.
func (r *helpRenderer) styleFlagLine(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(trimmed, "-") {
		return line
	}

	end := strings.Index(trimmed, "  ")
	if end < 0 {
		end = len(trimmed)
	}

	tokens := strings.Fields(trimmed[:end])
	for i, token := range tokens {
		if !strings.HasPrefix(token, "-") {
			tokens[i] = r.styles.value.Render(token)
			continue
		}
		name, comma := strings.CutSuffix(token, ",")
		tokens[i] = r.styles.flag.Render(name)
		if comma {
			tokens[i] += ","
		}
	}

	indent := line[:len(line)-len(trimmed)]
	return indent + strings.Join(tokens, " ") + trimmed[end:]
}
