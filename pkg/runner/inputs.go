package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/fsutil"
	"github.com/yaklabco/wahpolyglot/pkg/langdetect"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

// Input roles.
const (
	RoleStage2      = "stage2"
	RoleWasm        = "wasm"
	RoleIndexHTML   = "index_html"
	RoleTrailingZip = "trailing_zip"
	RoleStage3      = "stage3"
	RoleSection     = "section"
)

// Input records one file consumed by a build.
type Input struct {
	Role string
	// Name is the section name for RoleSection inputs.
	Name string
	Info *fsutil.FileInfo
	Kind langdetect.Kind

	// Rendered is set for index pages generated from Markdown.
	Rendered bool
}

// expectations lists the content kinds accepted per role. Roles without an
// entry are not checked.
var expectations = map[string][]langdetect.Kind{
	RoleStage2:      {langdetect.KindJavaScript, langdetect.KindText},
	RoleWasm:        {langdetect.KindWasm},
	RoleIndexHTML:   {langdetect.KindHTML, langdetect.KindMarkdown},
	RoleTrailingZip: {langdetect.KindZip},
}

type cachedFile struct {
	data []byte
	info *fsutil.FileInfo
}

type loader struct {
	opts    Options
	workDir string
	cache   map[string]cachedFile
	inputs  []Input
	warns   []string
}

func (l *loader) resolve(path string) string {
	if fsutil.IsStdio(path) || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.workDir, path)
}

// read loads one input. A path named by several roles, standard input
// included, is read once.
func (l *loader) read(ctx context.Context, role, name, path string) ([]byte, error) {
	path = l.resolve(path)
	key := path
	if fsutil.IsStdio(path) {
		key = fsutil.StdioPath
	}

	file, ok := l.cache[key]
	if !ok {
		data, info, err := fsutil.ReadInput(ctx, path, l.opts.stdin())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", role, err)
		}
		file = cachedFile{data: data, info: info}
		l.cache[key] = file
	}
	data, info := file.data, file.info

	in := Input{Role: role, Name: name, Info: info, Kind: langdetect.Detect(path, data)}
	if want, ok := expectations[role]; ok {
		if _, err := langdetect.Expect(displayName(path), data, want...); err != nil {
			l.warns = append(l.warns, fmt.Sprintf("%s: %v", role, err))
		}
	}
	l.inputs = append(l.inputs, in)
	return data, nil
}

func displayName(path string) string {
	if fsutil.IsStdio(path) {
		return "standard input"
	}
	return path
}

// loadInputs reads every configured file and assembles the composer input.
func (r *Runner) loadInputs(ctx context.Context, opts Options, workDir string) (polyglot.Inputs, *loader, error) {
	cfg := opts.Config
	logger := logging.FromContext(ctx)

	l := &loader{opts: opts, workDir: workDir, cache: make(map[string]cachedFile)}

	if cfg.Stage2 == "" {
		return polyglot.Inputs{}, nil, polyglot.ErrMissingStage2
	}

	in := polyglot.Inputs{
		Target:          cfg.Target,
		TrailingSection: cfg.TrailingSection(),
		Edit:            cfg.Edit,
	}

	var err error
	if in.Stage2, err = l.read(ctx, RoleStage2, "", cfg.Stage2); err != nil {
		return in, nil, err
	}
	if in.Module, err = l.read(ctx, RoleWasm, "", cfg.Wasm); err != nil {
		return in, nil, err
	}

	if cfg.IndexHTML != "" {
		page, err := l.read(ctx, RoleIndexHTML, "", cfg.IndexHTML)
		if err != nil {
			return in, nil, err
		}

		if hasMatchingExtension(cfg.IndexHTML, opts.effectiveMarkdownExtensions()) {
			page, err = r.Pages.Render(ctx, page)
			if err != nil {
				return in, nil, fmt.Errorf("%s: %w", RoleIndexHTML, err)
			}
			l.inputs[len(l.inputs)-1].Rendered = true
			logger.Debug("rendered index page from markdown",
				logging.FieldInput, cfg.IndexHTML, logging.FieldBytes, len(page))
		}
		in.IndexHTML = &polyglot.Payload{Name: cfg.IndexHTML, Data: page}
	}

	if cfg.TrailingZip != "" {
		data, err := l.read(ctx, RoleTrailingZip, "", cfg.TrailingZip)
		if err != nil {
			return in, nil, err
		}
		in.TrailingZip = &polyglot.Payload{Name: cfg.TrailingZip, Data: data}
	}

	if cfg.Stage3 != "" {
		if in.Stage3, err = l.read(ctx, RoleStage3, config.SectionStage3, cfg.Stage3); err != nil {
			return in, nil, err
		}
	}

	for _, section := range cfg.Sections {
		data, err := l.read(ctx, RoleSection, section.Name, section.File)
		if err != nil {
			return in, nil, err
		}
		in.Sections = append(in.Sections, polyglot.Section{Name: section.Name, Data: data})
	}

	if cfg.RootFS != "" {
		if cfg.Target != config.TargetHTMLTar {
			logger.Debug("root filesystem ignored for target",
				logging.FieldPath, cfg.RootFS, logging.FieldTarget, cfg.Target)
		} else {
			in.RootFS, err = readRootFS(ctx, l.resolve(cfg.RootFS), opts.Jobs)
			if err != nil {
				return in, nil, err
			}
			logger.Debug("read root filesystem",
				logging.FieldPath, cfg.RootFS, logging.FieldEntries, len(in.RootFS))
		}
	}

	return in, l, nil
}

// checkUnchanged warns about inputs modified while the build ran.
func (l *loader) checkUnchanged(ctx context.Context) {
	seen := make(map[string]bool)
	for _, in := range l.inputs {
		if seen[in.Info.Path] {
			continue
		}
		seen[in.Info.Path] = true

		modified, err := fsutil.CheckModified(ctx, in.Info)
		if err == nil && modified {
			l.warns = append(l.warns, fmt.Sprintf("%s: %s changed during the build", in.Role, in.Info.Path))
		}
	}
}
