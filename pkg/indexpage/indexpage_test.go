package indexpage_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/yaklabco/wahpolyglot/pkg/anchor"
	"github.com/yaklabco/wahpolyglot/pkg/indexpage"
)

func TestRender_Document(t *testing.T) {
	t.Parallel()

	source := "# My *App*\n\nLoading&hellip;\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"

	out, err := indexpage.New(indexpage.FlavorGFM).Render(context.Background(), []byte(source))
	require.NoError(t, err)

	page := string(out)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>\n<html lang=\"en\">\n"))
	assert.Contains(t, page, "<title>My App</title>")
	assert.Contains(t, page, "<table>")
	assert.True(t, strings.HasSuffix(page, "</body>\n</html>\n"))

	_, err = html.Parse(bytes.NewReader(out))
	require.NoError(t, err)
}

func TestRender_CommonMarkHasNoTables(t *testing.T) {
	t.Parallel()

	r := indexpage.New(indexpage.FlavorCommonMark)
	assert.Equal(t, indexpage.FlavorCommonMark, r.Flavor())

	out, err := r.Render(context.Background(), []byte("| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<table>")
	assert.Contains(t, string(out), "<title>"+indexpage.DefaultTitle+"</title>")
}

func TestRender_UnknownFlavorIsGFM(t *testing.T) {
	t.Parallel()

	assert.Equal(t, indexpage.FlavorGFM, indexpage.New("nope").Flavor())
}

func TestRender_TitleIsEscaped(t *testing.T) {
	t.Parallel()

	out, err := indexpage.New("").Render(context.Background(), []byte("# a `<b>` c\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>a &lt;b&gt; c</title>")
}

func TestRender_RawHTMLPassesThrough(t *testing.T) {
	t.Parallel()

	out, err := indexpage.New("").Render(context.Background(), []byte("<div id=\"app\"></div>\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<div id="app"></div>`)
}

func TestRender_ResolvesAnchors(t *testing.T) {
	t.Parallel()

	out, err := indexpage.New("").Render(context.Background(), []byte("# Hi\n\ntext\n"))
	require.NoError(t, err)

	res, err := anchor.New(nil).Resolve(string(out))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{anchor.ContentID, anchor.ScriptID}, res.Synthesized)
	assert.Equal(t, 2, res.Passes)
}

func TestRender_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := indexpage.New("").Render(ctx, []byte("# x"))
	require.Error(t, err)
}
