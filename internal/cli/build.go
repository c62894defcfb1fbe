package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yaklabco/wahpolyglot/internal/configloader"
	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
	"github.com/yaklabco/wahpolyglot/pkg/reporter"
	"github.com/yaklabco/wahpolyglot/pkg/runner"
)

// ErrTerminalOutput is returned when the artifact would be written to a
// terminal without --force-tty.
var ErrTerminalOutput = errors.New("refusing to write binary output to a terminal; use --out or --force-tty")

// defaultTableWidth is used when stderr is not a terminal.
const defaultTableWidth = 100

type buildFlags struct {
	out                string
	indexHTML          string
	zip                string
	trailingZipSection string
	rootFS             string
	sections           []string
	stage3             string
	target             string
	edit               bool
	backup             bool
	jobs               int
	forceTTY           bool
	summary            bool
	format             string
}

func newBuildCommand(global *globalFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:     "wah-polyglot STAGE2 [WASM]",
		Short:   "Wrap a WebAssembly module into a self-loading web artifact",
		Long:    buildLongDescription,
		Example: buildExamples,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return &UsageError{Err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, global, flags)
		},
	}

	addBuildFlags(cmd, flags)

	return cmd
}

const buildLongDescription = `wah-polyglot wraps a WebAssembly module into an artifact a browser can
open directly. The stage 2 payload is a JavaScript module that receives the
original module once the bootstrap page has been set up.

The module is read from standard input when WASM is omitted or "-", and the
artifact goes to standard output unless --out is given.`

const buildExamples = `  wah-polyglot stage2.js app.wasm -o app.html.wasm
  wah-polyglot stage2.js app.wasm -t html -i index.html -o app.html
  wah-polyglot stage2.js app.wasm -t html+tar -i index.html --root-fs site/ -o site.html
  cat app.wasm | wah-polyglot stage2.js --add-section meta,meta.json > out.wasm`

func addBuildFlags(cmd *cobra.Command, flags *buildFlags) {
	f := cmd.Flags()
	f.StringVarP(&flags.out, "out", "o", "", "file to write the artifact to (default: standard output)")
	f.StringVarP(&flags.indexHTML, "index-html", "i", "", "bootstrap page; Markdown is rendered to HTML first")
	f.StringVarP(&flags.zip, "trailing-zip", "z", "", "zip archive to attach as the last section")
	f.StringVar(&flags.trailingZipSection, "trailing-zip-section", "",
		"section name of the trailing archive (default: "+config.DefaultTrailingZipSection+")")
	f.StringVar(&flags.rootFS, "root-fs", "", "directory whose files are embedded (html+tar only)")
	f.StringArrayVar(&flags.sections, "add-section", nil, "extra custom section as name,file (repeatable)")
	f.StringVar(&flags.stage3, "stage3", "", "boot payload, shorthand for the "+config.SectionStage3+" section")
	f.StringVarP(&flags.target, "target", "t", string(config.TargetModule), "output target: wasm, wasm+html, html, html+tar")
	f.BoolVar(&flags.edit, "edit", false, "experimental hot-reload loader (requires "+config.ExperimentalEnv+")")
	f.BoolVar(&flags.backup, "backup", false, "keep the previous artifact as <out>"+fsutil.BackupSuffix)
	f.IntVarP(&flags.jobs, "jobs", "j", 0, "concurrent root filesystem readers (0 = number of CPUs)")
	f.BoolVar(&flags.forceTTY, "force-tty", false, "write the artifact even when standard output is a terminal")
	f.BoolVar(&flags.summary, "summary", false, "print a table of the emitted sections (same as --format summary)")
	f.StringVar(&flags.format, "format", "text", "build report on stderr: text, summary, json")

	// Alternative spellings share the destination of their canonical flag.
	f.StringVar(&flags.zip, "zip", "", "alias of --trailing-zip")
	f.BoolVar(&flags.edit, "dev", false, "alias of --edit")
	_ = f.MarkHidden("zip")
	_ = f.MarkHidden("dev")

	setFlagGroup(f, groupInputs, "index-html", "add-section", "stage3")
	setFlagGroup(f, groupArchive, "trailing-zip", "trailing-zip-section", "root-fs", "jobs")
	setFlagGroup(f, groupOutput, "out", "target", "backup", "force-tty", "summary", "format")
	setFlagGroup(f, groupExperimental, "edit")
}

// cliConfig translates the flags that were given into a config overlay.
// Unset flags stay empty so file and environment values survive the merge.
func (f *buildFlags) cliConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := &config.Config{
		IndexHTML:          f.indexHTML,
		TrailingZip:        f.zip,
		TrailingZipSection: f.trailingZipSection,
		RootFS:             f.rootFS,
		Stage3:             f.stage3,
		Edit:               f.edit,
		Stage2:             args[0],
		Out:                f.out,
		ForceTTY:           f.forceTTY,
		Summary:            f.summary,
	}
	if len(args) > 1 {
		cfg.Wasm = args[1]
	}

	if cmd.Flags().Changed("target") {
		target, err := config.ParseTarget(f.target)
		if err != nil {
			return nil, err
		}
		cfg.Target = target
	}

	for _, value := range f.sections {
		section, err := config.ParseExtraSection(value)
		if err != nil {
			return nil, fmt.Errorf("--add-section: %w", err)
		}
		cfg.Sections = append(cfg.Sections, section)
	}

	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string, global *globalFlags, flags *buildFlags) error {
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), global.level())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithLogger(ctx, logger)

	cliCfg, err := flags.cliConfig(cmd, args)
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	loadResult, err := configloader.Load(ctx, configloader.LoadOptions{
		WorkingDir:   workDir,
		ExplicitPath: global.configPath,
		CLIConfig:    cliCfg,
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	for _, warning := range loadResult.Warnings {
		logger.Warn(warning)
	}
	if len(loadResult.LoadedFrom) > 0 {
		logger.Debug("loaded configuration from", "files", loadResult.LoadedFrom)
	}

	finalCfg := loadResult.Config
	logger.Debug("configuration loaded",
		logging.FieldTarget, finalCfg.Target,
		"edit", finalCfg.Edit,
		logging.FieldSections, len(finalCfg.Sections),
	)

	stdout := cmd.OutOrStdout()
	if fsutil.IsStdio(finalCfg.Out) && !finalCfg.ForceTTY && isTerminal(stdout) {
		return ErrTerminalOutput
	}

	format, err := reporter.ParseFormat(flags.format)
	if err != nil {
		return &UsageError{Err: err}
	}
	if finalCfg.Summary && format == reporter.FormatText {
		format = reporter.FormatSummary
	}

	buildRunner := runner.New(polyglot.NewComposer())
	result, err := buildRunner.Run(ctx, runner.Options{
		Config:     finalCfg,
		WorkingDir: workDir,
		Stdin:      cmd.InOrStdin(),
		Stdout:     stdout,
		Jobs:       flags.jobs,
		Backup:     flags.backup,
	})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	rep, err := reporter.New(reporter.Options{
		Writer:    cmd.ErrOrStderr(),
		Format:    format,
		Color:     global.color,
		TermWidth: terminalWidth(cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}
	if _, err := rep.Report(ctx, result); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// terminalWidth returns the column count of w, or defaultTableWidth.
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return defaultTableWidth
	}
	cols, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return defaultTableWidth
	}
	return cols
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
