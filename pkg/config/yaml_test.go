package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

func TestConfigClone(t *testing.T) {
	t.Parallel()

	t.Run("nil config returns nil", func(t *testing.T) {
		t.Parallel()
		var c *config.Config
		assert.Nil(t, c.Clone())
	})

	t.Run("deep copies sections", func(t *testing.T) {
		t.Parallel()

		original := &config.Config{
			Target:   config.TargetHTMLTar,
			Sections: []config.ExtraSection{{Name: "a", File: "a.bin"}},
			Stage2:   "main.js",
			Out:      "out.html",
		}

		clone := original.Clone()
		require.NotNil(t, clone)
		assert.NotSame(t, original, clone)
		assert.Equal(t, original, clone)

		clone.Sections[0].Name = "changed"
		assert.Equal(t, "a", original.Sections[0].Name)
	})
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	original := &config.Config{
		Target:             config.TargetHTML,
		IndexHTML:          "index.html",
		TrailingZip:        "root.zip",
		TrailingZipSection: "data",
		Stage3:             "boot.js",
		Sections:           []config.ExtraSection{{Name: "x", File: "x.bin"}},
		Edit:               true,
		Stage2:             "not serialized",
	}

	data, err := original.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "index_html: index.html")
	assert.NotContains(t, string(data), "not serialized")

	parsed, err := config.FromYAML(data)
	require.NoError(t, err)

	want := original.Clone()
	want.Stage2 = ""
	assert.Equal(t, want, parsed)
}

func TestFromYAML(t *testing.T) {
	t.Parallel()

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.FromYAML(nil)
		require.NoError(t, err)
		assert.Equal(t, &config.Config{}, cfg)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		_, err := config.FromYAML([]byte("target: html\nflavor: gfm\n"))
		require.Error(t, err)
	})

	t.Run("sections list", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.FromYAML([]byte("sections:\n  - name: a\n    file: a.bin\n  - name: b\n    file: b.bin\n"))
		require.NoError(t, err)
		assert.Equal(t, []config.ExtraSection{{Name: "a", File: "a.bin"}, {Name: "b", File: "b.bin"}}, cfg.Sections)
	})
}

func TestToYAMLWithHeader(t *testing.T) {
	t.Parallel()

	data, err := config.NewConfig().ToYAMLWithHeader("# header")
	require.NoError(t, err)
	assert.Equal(t, "# header\n\ntarget: wasm\ntrailing_zip_section: wah_polyglot_stage2_data\n", string(data))
}
