package polyglot

import (
	"context"
	"fmt"

	"github.com/yaklabco/wahpolyglot/internal/logging"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/wasmsect"
)

// Layer assembles the module shared by all targets: the stage sections,
// then every section of the input module unchanged, then the extra
// sections, then the trailing archive unless the target is html+tar.
func (c *Composer) Layer(ctx context.Context, in Inputs) ([]byte, []SectionInfo, error) {
	logger := logging.FromContext(ctx)

	if in.Stage2 == nil {
		return nil, nil, ErrMissingStage2
	}

	if in.Edit {
		if _, ok := c.LookupEnv(config.ExperimentalEnv); !ok {
			return nil, nil, fmt.Errorf("%w; set %s to enable it", ErrExperimentalDisabled, config.ExperimentalEnv)
		}
	}

	passthrough, err := c.Splitter.Split(in.Module)
	if err != nil {
		return nil, nil, fmt.Errorf("parse input module: %w", err)
	}

	var infos []SectionInfo
	b := wasmsect.NewBuilder()

	custom := func(name string, content []byte) {
		before := b.Len()
		b.Custom(name, content)
		infos = append(infos, SectionInfo{Name: name, ID: wasmsect.CustomID, Size: b.Len() - before})
		logger.Debug("section emitted", logging.FieldSection, name, logging.FieldBytes, len(content))
	}

	custom(config.SectionStage0, Stage0())
	custom(config.SectionStage1, Stage1(in.Edit))
	if in.IndexHTML != nil {
		custom(config.SectionStage1HTML, in.IndexHTML.Data)
	}
	custom(config.SectionStage2, in.Stage2)

	for _, section := range passthrough {
		before := b.Len()
		b.Raw(section)

		info := SectionInfo{ID: section.ID, Size: b.Len() - before}
		if name, _, ok := section.CustomName(); ok {
			info.Name = name
		}
		infos = append(infos, info)
	}

	if in.Stage3 != nil {
		custom(config.SectionStage3, in.Stage3)
	}
	for _, section := range in.Sections {
		custom(section.Name, section.Data)
	}

	if in.TrailingZip != nil && in.Target != config.TargetHTMLTar {
		name := in.TrailingSection
		if name == "" {
			name = config.DefaultTrailingZipSection
		}
		custom(name, in.TrailingZip.Data)
	}

	module, err := b.Finish()
	if err != nil {
		return nil, nil, fmt.Errorf("assemble module: %w", err)
	}

	return module, infos, nil
}
