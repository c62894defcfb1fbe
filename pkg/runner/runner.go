package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
	"github.com/yaklabco/wahpolyglot/pkg/indexpage"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

// Composer builds an artifact from loaded inputs. *polyglot.Composer
// implements it.
type Composer interface {
	Compose(ctx context.Context, in polyglot.Inputs) (*polyglot.Result, error)
}

// Runner orchestrates one build.
type Runner struct {
	Composer Composer

	// Pages renders Markdown index pages.
	Pages *indexpage.Renderer
}

// New creates a Runner with the given composer and a GFM page renderer.
func New(composer Composer) *Runner {
	return &Runner{Composer: composer, Pages: indexpage.New(indexpage.FlavorGFM)}
}

// Run reads the inputs named by opts.Config, composes the artifact and
// writes it to Config.Out or standard output.
//
// Every input is read exactly once before composition starts. Content that
// does not look like what its role expects is reported in Result.Warnings
// but does not stop the build.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("runner: %w", errNoConfig)
	}

	ctx = logging.WithFields(ctx, logging.FieldTarget, opts.Config.Target)
	logger := logging.FromContext(ctx)

	workDir, err := resolveWorkDir(opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	in, l, err := r.loadInputs(ctx, opts, workDir)
	if err != nil {
		return nil, err
	}

	built, err := r.Composer.Compose(ctx, in)
	if err != nil {
		return nil, err
	}

	l.checkUnchanged(ctx)

	result := &Result{Build: built, Inputs: l.inputs, Warnings: l.warns}
	result.collectStats(in)

	for _, warning := range result.Warnings {
		logger.Warn(warning)
	}

	if err := r.write(ctx, opts, workDir, result); err != nil {
		return result, err
	}

	logger.Debug("artifact written",
		logging.FieldOutput, result.Output,
		logging.FieldBytes, len(built.Bytes),
		logging.FieldSections, len(built.Sections))

	return result, nil
}

func (r *Runner) write(ctx context.Context, opts Options, workDir string, result *Result) error {
	out := opts.Config.Out
	data := result.Build.Bytes

	if fsutil.IsStdio(out) {
		result.Output = fsutil.StdioPath
		if _, err := opts.stdout().Write(data); err != nil {
			return fmt.Errorf("write standard output: %w", err)
		}
		result.Stats.Written = true
		return nil
	}

	if !filepath.IsAbs(out) {
		out = filepath.Join(workDir, out)
	}
	result.Output = out

	if opts.Backup {
		created, err := fsutil.CreateBackup(ctx, out)
		if err != nil {
			return err
		}
		if created {
			result.Backup = fsutil.BackupPath(out)
		}
	}

	written, err := fsutil.WriteAtomicIfChanged(ctx, out, data, 0)
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	result.Stats.Written = written
	return nil
}

// resolveWorkDir resolves the working directory, defaulting to os.Getwd().
func resolveWorkDir(workDir string) (string, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	absPath, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return absPath, nil
}
