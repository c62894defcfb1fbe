package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  config.Target
	}{
		{input: "wasm", want: config.TargetModule},
		{input: "wasm+html", want: config.TargetModule},
		{input: "html", want: config.TargetHTML},
		{input: "html+tar", want: config.TargetHTMLTar},
	}

	for _, testCase := range tests {
		t.Run(testCase.input, func(t *testing.T) {
			t.Parallel()

			got, err := config.ParseTarget(testCase.input)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
			assert.True(t, got.IsValid())
		})
	}

	for _, name := range config.TargetNames() {
		_, err := config.ParseTarget(name)
		assert.NoError(t, err, name)
	}
}

func TestParseTarget_Unknown(t *testing.T) {
	t.Parallel()

	_, err := config.ParseTarget("zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrUnknownTarget))
	assert.Equal(t, "unknown target selection zip", err.Error())

	_, err = config.ParseTarget("HTML")
	assert.ErrorIs(t, err, config.ErrUnknownTarget)

	assert.False(t, config.Target("wasm+html").IsValid())
}

func TestParseExtraSection(t *testing.T) {
	t.Parallel()

	section, err := config.ParseExtraSection("my_data,assets/data,v2.bin")
	require.NoError(t, err)
	assert.Equal(t, config.ExtraSection{Name: "my_data", File: "assets/data,v2.bin"}, section)
	assert.Equal(t, "my_data,assets/data,v2.bin", section.String())

	section, err = config.ParseExtraSection(",file")
	require.NoError(t, err)
	assert.Empty(t, section.Name)

	_, err = config.ParseExtraSection("no-comma")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrSectionSpec)
	assert.Contains(t, err.Error(), "expected `section_name,file_name`")
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	assert.Equal(t, config.TargetModule, cfg.Target)
	assert.Equal(t, config.DefaultTrailingZipSection, cfg.TrailingSection())

	cfg.TrailingZipSection = ""
	assert.Equal(t, "wah_polyglot_stage2_data", cfg.TrailingSection())

	cfg.TrailingZipSection = "custom"
	assert.Equal(t, "custom", cfg.TrailingSection())
}

func TestIsReservedSection(t *testing.T) {
	t.Parallel()

	for _, name := range config.ReservedSections() {
		assert.True(t, config.IsReservedSection(name), name)
	}
	assert.False(t, config.IsReservedSection(config.DefaultTrailingZipSection))
	assert.False(t, config.IsReservedSection("producers"))
}
