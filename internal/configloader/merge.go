package configloader

import "github.com/yaklabco/wahpolyglot/pkg/config"

// merge combines two configurations, with override taking precedence over base.
// The merge follows these rules:
//   - Strings: override overwrites base if non-empty
//   - Edit: a true override wins; a file cannot switch it off again
//   - Sections: override replaces base entirely if non-nil
func merge(base, override *config.Config) *config.Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := *base

	if override.Target != "" {
		result.Target = override.Target
	}
	if override.IndexHTML != "" {
		result.IndexHTML = override.IndexHTML
	}
	if override.TrailingZip != "" {
		result.TrailingZip = override.TrailingZip
	}
	if override.TrailingZipSection != "" {
		result.TrailingZipSection = override.TrailingZipSection
	}
	if override.RootFS != "" {
		result.RootFS = override.RootFS
	}
	if override.Stage3 != "" {
		result.Stage3 = override.Stage3
	}
	if override.Edit {
		result.Edit = true
	}

	if override.Sections != nil {
		result.Sections = make([]config.ExtraSection, len(override.Sections))
		copy(result.Sections, override.Sections)
	}

	// CLI-only fields only ever come from the override.
	if override.Stage2 != "" {
		result.Stage2 = override.Stage2
	}
	if override.Wasm != "" {
		result.Wasm = override.Wasm
	}
	if override.Out != "" {
		result.Out = override.Out
	}
	if override.ForceTTY {
		result.ForceTTY = true
	}
	if override.Summary {
		result.Summary = true
	}

	return &result
}

// MergeAll merges multiple configurations in order, with later configs taking precedence.
func MergeAll(configs ...*config.Config) *config.Config {
	if len(configs) == 0 {
		return nil
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		result = merge(result, configs[i])
	}
	return result
}
