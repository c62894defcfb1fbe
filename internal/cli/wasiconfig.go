package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/capvm"
	"github.com/yaklabco/wahpolyglot/pkg/capvm/wazerohost"
	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
)

type wasiConfigFlags struct {
	module      string
	config      string
	out         string
	disassemble bool
}

func newWasiConfigCommand(global *globalFlags) *cobra.Command {
	flags := &wasiConfigFlags{}

	cmd := &cobra.Command{
		Use:   "wasi-config",
		Short: "Emit the boot program of the WASI configuration module",
		Long: `Emit the capability program that mounts the trailing archive section as
the "dir" directory of a WASI guest.

Without --module the program is generated natively. With --module the given
configuration module is run under wazero and the program it hands back
through ` + wazerohost.HostModule + `.put is emitted instead. The configuration
passed to the module is read from --input ("-" for standard input).

Examples:
  wah-polyglot wasi-config --disassemble
  wah-polyglot wasi-config -o boot.capvm
  wah-polyglot wasi-config --module wah-wasi-config.wasm --input config.json -o boot.capvm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWasiConfig(cmd, global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.module, "module", "m", "", "configuration module to run instead of the built-in generator")
	cmd.Flags().StringVar(&flags.config, "input", "", "configuration handed to the module (\"-\" for standard input)")
	cmd.Flags().StringVarP(&flags.out, "output", "o", "", "file to write the program to (default: standard output)")
	cmd.Flags().BoolVar(&flags.disassemble, "disassemble", false, "print the program as text")

	return cmd
}

func runWasiConfig(cmd *cobra.Command, global *globalFlags, flags *wasiConfigFlags) error {
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), global.level())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithLogger(ctx, logger)

	var cfg []byte
	if flags.config != "" {
		data, _, err := fsutil.ReadInput(ctx, flags.config, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read configuration: %w", err)
		}
		cfg = data
	}

	program := capvm.Generate(cfg)
	if flags.module != "" {
		guest, _, err := fsutil.ReadFile(ctx, flags.module)
		if err != nil {
			return fmt.Errorf("read configuration module: %w", err)
		}

		program, err = wazerohost.Run(ctx, guest, cfg,
			wazerohost.WithStdout(cmd.ErrOrStderr()),
			wazerohost.WithStderr(cmd.ErrOrStderr()))
		if err != nil {
			return fmt.Errorf("run %s: %w", flags.module, err)
		}
		logger.Debug("program produced by module", logging.FieldInput, flags.module, logging.FieldBytes, len(program))
	}

	output := program
	if flags.disassemble {
		text, err := capvm.Disassemble(program)
		if err != nil {
			return err
		}
		output = []byte(text)
	}

	if fsutil.IsStdio(flags.out) {
		if !flags.disassemble && isTerminal(cmd.OutOrStdout()) {
			return ErrTerminalOutput
		}
		if _, err := cmd.OutOrStdout().Write(output); err != nil {
			return fmt.Errorf("write standard output: %w", err)
		}
		return nil
	}

	if err := fsutil.WriteAtomic(ctx, flags.out, output, 0); err != nil {
		return fmt.Errorf("write %s: %w", flags.out, err)
	}
	logger.Info("program written", logging.FieldOutput, flags.out, logging.FieldBytes, len(output))
	return nil
}
