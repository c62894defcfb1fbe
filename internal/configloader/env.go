package configloader

import (
	"fmt"
	"os"
	"strconv"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

// envVarPrefix is the prefix for all wah-polyglot environment variables.
const envVarPrefix = "WAH_POLYGLOT_"

// envFieldType represents the type of a configuration field.
type envFieldType int

const (
	envTypeString envFieldType = iota
	envTypeBool
)

// envMapping defines environment variable to config field mappings.
type envMapping struct {
	field string
	typ   envFieldType
}

// envMappings maps environment variable names (without prefix) to config fields.
//
//nolint:gochecknoglobals // Read-only lookup table.
var envMappings = map[string]envMapping{
	"TARGET":               {field: "target", typ: envTypeString},
	"INDEX_HTML":           {field: "index_html", typ: envTypeString},
	"TRAILING_ZIP":         {field: "trailing_zip", typ: envTypeString},
	"TRAILING_ZIP_SECTION": {field: "trailing_zip_section", typ: envTypeString},
	"ROOT_FS":              {field: "root_fs", typ: envTypeString},
	"STAGE3":               {field: "stage3", typ: envTypeString},
	"EDIT":                 {field: "edit", typ: envTypeBool},
}

// LookupFunc reads an environment variable. os.LookupEnv is the default.
type LookupFunc func(key string) (string, bool)

// LoadFromEnv applies environment variable overrides to the configuration.
// Environment variables are prefixed with WAH_POLYGLOT_ (e.g., WAH_POLYGLOT_TARGET).
func LoadFromEnv(cfg *config.Config) error {
	return LoadFromEnvFunc(cfg, os.LookupEnv)
}

// LoadFromEnvFunc is LoadFromEnv with an explicit lookup.
func LoadFromEnvFunc(cfg *config.Config, lookup LookupFunc) error {
	if cfg == nil {
		return nil
	}

	for envSuffix, mapping := range envMappings {
		envVar := envVarPrefix + envSuffix
		value, _ := lookup(envVar)
		if value == "" {
			continue
		}

		if err := applyEnvValue(cfg, mapping, value, envVar); err != nil {
			return err
		}
	}

	return nil
}

// applyEnvValue applies a single environment variable value to the config.
func applyEnvValue(cfg *config.Config, mapping envMapping, value, envVar string) error {
	switch mapping.typ {
	case envTypeString:
		return setStringField(cfg, mapping.field, value, envVar)
	case envTypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %q (expected true/false/1/0)", envVar, value)
		}
		return setBoolField(cfg, mapping.field, b)
	default:
		return fmt.Errorf("unknown field type for %s", envVar)
	}
}

// setStringField sets a string field on the config by field path.
func setStringField(cfg *config.Config, field, value, envVar string) error {
	switch field {
	case "target":
		target, err := config.ParseTarget(value)
		if err != nil {
			return fmt.Errorf("%s: %w", envVar, err)
		}
		cfg.Target = target
	case "index_html":
		cfg.IndexHTML = value
	case "trailing_zip":
		cfg.TrailingZip = value
	case "trailing_zip_section":
		cfg.TrailingZipSection = value
	case "root_fs":
		cfg.RootFS = value
	case "stage3":
		cfg.Stage3 = value
	default:
		return fmt.Errorf("unknown string field: %s", field)
	}
	return nil
}

// setBoolField sets a boolean field on the config by field path.
func setBoolField(cfg *config.Config, field string, value bool) error {
	switch field {
	case "edit":
		cfg.Edit = value
	default:
		return fmt.Errorf("unknown boolean field: %s", field)
	}
	return nil
}

// GetEnvVarName returns the full environment variable name for a config field.
func GetEnvVarName(field string) string {
	for suffix, mapping := range envMappings {
		if mapping.field == field {
			return envVarPrefix + suffix
		}
	}
	return ""
}

// ListEnvVars returns all supported environment variables with their descriptions.
func ListEnvVars() map[string]string {
	return map[string]string{
		"WAH_POLYGLOT_TARGET":               "Output target: wasm, wasm+html, html, or html+tar",
		"WAH_POLYGLOT_INDEX_HTML":           "Bootstrap page or html+tar template",
		"WAH_POLYGLOT_TRAILING_ZIP":         "Zip archive appended as the trailing section",
		"WAH_POLYGLOT_TRAILING_ZIP_SECTION": "Name of the trailing archive section",
		"WAH_POLYGLOT_ROOT_FS":              "Directory embedded by the html+tar target",
		"WAH_POLYGLOT_STAGE3":               "Boot hook emitted as " + config.SectionStage3,
		"WAH_POLYGLOT_EDIT":                 "Experimental hot-reload loader: true or false",
		config.ExperimentalEnv:              "Presence enables experimental features",
	}
}
