package config

import (
	"encoding/json"
	"fmt"
)

// TemplateOptions controls configuration template generation.
type TemplateOptions struct {
	// Format is the output format: "yaml" or "json".
	Format string
}

// GenerateTemplate creates a commented project configuration file.
func GenerateTemplate(opts TemplateOptions) ([]byte, error) {
	switch opts.Format {
	case "", "yaml":
		return []byte(DefaultTemplateHeader() + "\n\n" + yamlTemplateBody), nil
	case "json":
		return templateToJSON()
	default:
		return nil, fmt.Errorf("unsupported template format %q", opts.Format)
	}
}

const yamlTemplateBody = `# Output target: wasm (alias wasm+html), html, or html+tar
target: wasm

# Bootstrap page; required for html+tar. Markdown files are rendered first.
# index_html: index.html

# Zip archive appended as the last custom section
# trailing_zip: rootfs.zip
# trailing_zip_section: ` + DefaultTrailingZipSection + `

# Directory embedded file by file (html+tar only)
# root_fs: ./rootfs

# Boot hook, emitted as the ` + SectionStage3 + ` section
# stage3: boot.js

# Extra custom sections, emitted in order after stage3
# sections:
#   - name: my_section
#     file: data.bin

# Experimental hot-reload loader (requires ` + ExperimentalEnv + `)
# edit: false
`

// templateToJSON renders the defaults as JSON. JSON has no comments, so only
// the set keys appear.
func templateToJSON() ([]byte, error) {
	cfg := map[string]any{
		"target":               string(TargetModule),
		"trailing_zip_section": DefaultTrailingZipSection,
		"sections":             []ExtraSection{},
	}

	jsonBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON: %w", err)
	}
	return jsonBytes, nil
}

// DefaultTemplateHeader returns the default header for generated configs.
func DefaultTemplateHeader() string {
	return `# wah-polyglot configuration
# See: https://github.com/yaklabco/wahpolyglot`
}
