// Package configloader provides configuration loading and resolution.
// It implements XDG-compliant configuration discovery, hierarchical merging,
// environment variable support, and validation.
package configloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

// LoadOptions controls configuration loading behavior.
type LoadOptions struct {
	// WorkingDir is the directory to search from for project config.
	// Defaults to current working directory if empty.
	WorkingDir string

	// ExplicitPath is an explicit config file path (from --config flag).
	ExplicitPath string

	// IgnoreSystemConfig skips loading system-level configuration.
	IgnoreSystemConfig bool

	// IgnoreUserConfig skips loading user-level configuration.
	IgnoreUserConfig bool

	// IgnoreProjectConfig skips loading project-level configuration.
	IgnoreProjectConfig bool

	// IgnoreEnv skips loading environment variables.
	IgnoreEnv bool

	// LookupEnv reads environment variables; os.LookupEnv if nil.
	LookupEnv LookupFunc

	// CLIConfig contains configuration from CLI flags.
	// These take highest precedence.
	CLIConfig *config.Config
}

// LoadResult contains the resolved configuration and metadata.
type LoadResult struct {
	// Config is the final merged configuration.
	Config *config.Config

	// Paths contains the discovered configuration file paths.
	Paths *ConfigPaths

	// LoadedFrom lists the files that were actually loaded (in order).
	LoadedFrom []string

	// Warnings contains non-fatal issues encountered during loading.
	Warnings []string

	// Experimental is true when the experimental gate is open.
	Experimental bool
}

// Load resolves the final configuration by merging all sources.
// Precedence (highest to lowest):
//  1. CLI flags (opts.CLIConfig)
//  2. Environment variables (WAH_POLYGLOT_*)
//  3. Explicit config file (opts.ExplicitPath)
//  4. Project config (.wah-polyglot.yml upward search)
//  5. User config ($XDG_CONFIG_HOME/wah-polyglot/config.yaml)
//  6. System config (/etc/wah-polyglot/config.yaml)
//  7. Defaults
//
// Relative paths inside a config file are resolved against the directory of
// that file.
func Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	workDir := opts.WorkingDir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	paths, err := DiscoverPaths(ctx, workDir)
	if err != nil {
		return nil, fmt.Errorf("discover paths: %w", err)
	}
	paths.Explicit = opts.ExplicitPath

	_, experimental := lookup(config.ExperimentalEnv)
	result := &LoadResult{
		Paths:        paths,
		Experimental: experimental,
	}

	cfg := config.NewConfig()

	sources := []struct {
		label  string
		path   string
		ignore bool
	}{
		{label: "system", path: paths.System, ignore: opts.IgnoreSystemConfig},
		{label: "user", path: paths.User, ignore: opts.IgnoreUserConfig},
		{label: "project", path: paths.Project, ignore: opts.IgnoreProjectConfig},
		{label: "explicit", path: paths.Explicit},
	}

	for _, source := range sources {
		if source.ignore || source.path == "" {
			continue
		}

		fileCfg, err := loadConfigFile(source.path)
		if err != nil {
			return nil, fmt.Errorf("load %s config: %w", source.label, err)
		}

		cfg = merge(cfg, fileCfg)
		result.LoadedFrom = append(result.LoadedFrom, source.path)
	}

	if !opts.IgnoreEnv {
		if err := LoadFromEnvFunc(cfg, lookup); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	if opts.CLIConfig != nil {
		cfg = merge(cfg, opts.CLIConfig)
	}

	validation := Validate(cfg, experimental)
	if !validation.Valid() {
		return nil, &validation.Errors[0]
	}

	for _, w := range validation.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}

	result.Config = cfg
	return result, nil
}

// loadConfigFile loads a configuration from a YAML file, normalizes its
// target and anchors relative paths at the file's directory.
func loadConfigFile(path string) (*config.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg, err := config.FromYAML(content)
	if err != nil {
		return nil, err
	}

	if cfg.Target != "" {
		target, err := config.ParseTarget(string(cfg.Target))
		if err != nil {
			return nil, &ValidationError{Field: "target", Value: cfg.Target, Message: err.Error(), FilePath: path}
		}
		cfg.Target = target
	}

	resolvePaths(cfg, filepath.Dir(path))
	return cfg, nil
}

// resolvePaths rewrites relative file references against dir.
func resolvePaths(cfg *config.Config, dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	cfg.IndexHTML = resolve(cfg.IndexHTML)
	cfg.TrailingZip = resolve(cfg.TrailingZip)
	cfg.RootFS = resolve(cfg.RootFS)
	cfg.Stage3 = resolve(cfg.Stage3)
	for i := range cfg.Sections {
		cfg.Sections[i].File = resolve(cfg.Sections[i].File)
	}
}
