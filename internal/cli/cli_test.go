package cli_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yaklabco/wahpolyglot/internal/cli"
	"github.com/yaklabco/wahpolyglot/internal/configloader"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

func testInfo() cli.BuildInfo {
	return cli.BuildInfo{
		Version: "test-version",
		Commit:  "test-commit",
		Date:    "test-date",
	}
}

func TestNewRootCommand(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	if cmd == nil {
		t.Fatal("NewRootCommand returned nil")
	}

	if cmd.Name() != "wah-polyglot" {
		t.Errorf("expected name to be 'wah-polyglot', got %q", cmd.Name())
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	if cmd.RunE == nil {
		t.Error("expected the root command to build")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	for _, name := range []string{"init", "wasi-config", "version"} {
		subCmd, _, err := cmd.Find([]string{name})
		if err != nil {
			t.Errorf("expected subcommand %q to exist, got error: %v", name, err)
			continue
		}

		if subCmd.Name() != name {
			t.Errorf("expected subcommand name %q, got %q", name, subCmd.Name())
		}
	}
}

func TestBuildFlags(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	expectedFlags := []string{
		"out",
		"index-html",
		"trailing-zip",
		"zip",
		"trailing-zip-section",
		"root-fs",
		"add-section",
		"stage3",
		"target",
		"edit",
		"dev",
		"backup",
		"jobs",
		"force-tty",
		"summary",
		"format",
	}

	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag %q to exist", flagName)
		}
	}

	shorthands := map[string]string{"o": "out", "i": "index-html", "z": "trailing-zip", "t": "target"}
	for short, long := range shorthands {
		flag := cmd.Flags().ShorthandLookup(short)
		if flag == nil || flag.Name != long {
			t.Errorf("expected -%s to be shorthand for --%s", short, long)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	for _, flagName := range []string{"debug", "config", "color"} {
		if cmd.PersistentFlags().Lookup(flagName) == nil {
			t.Errorf("expected global flag %q to exist", flagName)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	for _, want := range []string{"wah-polyglot", "test-version", "test-commit", "test-date"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("expected version output to contain %q, got %q", want, stdout.String())
		}
	}
}

func TestBuildRequiresStage2(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error without arguments")
	}
	if code := cli.ExitCodeFromError(err); code != cli.ExitInvalidUsage {
		t.Errorf("expected exit code %d, got %d (%v)", cli.ExitInvalidUsage, code, err)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--no-such-flag", "stage2.js"})

	err := cmd.Execute()
	if code := cli.ExitCodeFromError(err); code != cli.ExitInvalidUsage {
		t.Errorf("expected exit code %d, got %d (%v)", cli.ExitInvalidUsage, code, err)
	}
}

func TestExitCodeFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: cli.ExitSuccess},
		{name: "terminal output", err: cli.ErrTerminalOutput, want: cli.ExitInvalidUsage},
		{name: "unknown target", err: fmt.Errorf("x: %w", config.ErrUnknownTarget), want: cli.ExitInvalidUsage},
		{name: "section spec", err: config.ErrSectionSpec, want: cli.ExitInvalidUsage},
		{name: "usage", err: &cli.UsageError{Err: errors.New("bad")}, want: cli.ExitInvalidUsage},
		{
			name: "validation",
			err:  fmt.Errorf("load: %w", &configloader.ValidationError{Field: "target", Message: "bad"}),
			want: cli.ExitConfigError,
		},
		{name: "experimental", err: polyglot.ErrExperimentalDisabled, want: cli.ExitConfigError},
		{name: "not found", err: fmt.Errorf("stage2: %w", fsutil.ErrNotFound), want: cli.ExitIOError},
		{name: "anchor order", err: polyglot.ErrAnchorOrder, want: cli.ExitBuildFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := cli.ExitCodeFromError(tt.err); got != tt.want {
				t.Errorf("ExitCodeFromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
