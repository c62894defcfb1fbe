// Package cli provides the Cobra command structure for wah-polyglot.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/yaklabco/wahpolyglot/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	debug      bool
	configPath string
	color      string
}

func (g *globalFlags) level() string {
	if g.debug {
		return "debug"
	}
	return "info"
}

// NewRootCommand creates the root wah-polyglot command. The root command
// itself builds an artifact; maintenance commands hang below it.
func NewRootCommand(info BuildInfo) *cobra.Command {
	global := &globalFlags{}

	rootCmd := newBuildCommand(global)
	rootCmd.Version = info.Version
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		logging.SetLevel(global.level())
	}
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&global.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&global.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&global.color, "color", "auto",
		"colorize output: auto, always, never")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newWasiConfigCommand(global))
	rootCmd.AddCommand(newVersionCommand(info))

	applyHelp(rootCmd)

	return rootCmd
}
