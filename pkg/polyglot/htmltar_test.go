//go:build !nohtmltar

package polyglot_test

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/yaklabco/wahpolyglot/pkg/anchor"
	"github.com/yaklabco/wahpolyglot/pkg/config"
	"github.com/yaklabco/wahpolyglot/pkg/htmltar"
	"github.com/yaklabco/wahpolyglot/pkg/polyglot"
)

const tarTemplate = "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n" +
	"<template id=\"" + anchor.ContentID + "\"></template>\n</head>\n<body>\n<p>before</p>\n" +
	"<script id=\"" + anchor.ScriptID + "\">console.log('entry')</script>\n<p>after</p>\n</body>\n</html>\n"

func htmlTarInputs(t *testing.T, template string) polyglot.Inputs {
	t.Helper()

	in := baseInputs()
	in.Target = config.TargetHTMLTar
	in.IndexHTML = &polyglot.Payload{Name: "index.html", Data: []byte(template)}
	in.TrailingZip = &polyglot.Payload{
		Name: "root.zip",
		Data: makeZip(t, map[string]string{"etc/motd": "hello", "../x": "skip"}, []string{"etc/motd", "../x"}),
	}
	in.RootFS = []polyglot.Entry{{Name: "bin/tool", Data: bytes.Repeat([]byte{0xfe}, 700)}}
	return in
}

type templateParts struct {
	head, beforeContent, between, after string
}

func splitTemplate(t *testing.T, template string) templateParts {
	t.Helper()

	resolution, err := anchor.Resolve(template)
	require.NoError(t, err)

	doc := resolution.Document
	content, err := doc.Span(resolution.InsertionTag)
	require.NoError(t, err)
	script, err := doc.Span(resolution.Stage0)
	require.NoError(t, err)

	text := doc.Text()
	return templateParts{
		head:          text[:resolution.HTMLInsertionPoint],
		beforeContent: text[resolution.HTMLInsertionPoint:content.Start],
		between:       text[content.End:script.Start],
		after:         text[script.End:],
	}
}

func TestCompose_HTMLTarVerbatimRegions(t *testing.T) {
	t.Parallel()

	result, err := composer(nil).Compose(context.Background(), htmlTarInputs(t, tarTemplate))
	require.NoError(t, err)

	out := string(result.Bytes)
	parts := splitTemplate(t, tarTemplate)

	assert.True(t, strings.HasPrefix(out, parts.head))
	assert.Contains(t, out, parts.beforeContent)

	tail := parts.between + "<script>" + string(polyglot.HTMLPlusTarScript()) + "</script>" + parts.after
	assert.True(t, strings.HasSuffix(out, tail))

	assert.Equal(t, []string{polyglot.BootPath, "etc/motd", "bin/tool"}, result.Entries)
	assert.Equal(t, []string{"../x"}, result.Skipped)
	assert.Empty(t, result.Synthesized)

	// The trailing archive is unpacked, not appended as a section.
	assert.NotContains(t, customNames(t, result.Module), config.DefaultTrailingZipSection)
}

func TestCompose_HTMLTarReadableAsTar(t *testing.T) {
	t.Parallel()

	in := htmlTarInputs(t, tarTemplate)
	result, err := composer(nil).Compose(context.Background(), in)
	require.NoError(t, err)

	parts := splitTemplate(t, tarTemplate)
	tr := tar.NewReader(bytes.NewReader(result.Bytes))

	first, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, parts.head+"<!--", first.Name)

	want := map[string][]byte{
		polyglot.BootPath: result.Module,
		"etc/motd":        []byte("hello"),
		"bin/tool":        in.RootFS[0].Data,
	}

	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)

		encoded, err := io.ReadAll(tr)
		require.NoError(t, err)
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimRight(string(encoded), "\n"))
		require.NoError(t, err, hdr.Name)
		assert.Equal(t, want[hdr.Name], decoded, hdr.Name)
	}
	assert.Equal(t, result.Entries, names)
}

func TestCompose_HTMLTarParsesAsHTML(t *testing.T) {
	t.Parallel()

	result, err := composer(nil).Compose(context.Background(), htmlTarInputs(t, tarTemplate))
	require.NoError(t, err)

	root, err := html.Parse(bytes.NewReader(result.Bytes))
	require.NoError(t, err)

	var (
		dataTemplates int
		scripts       []string
		paragraphs    []string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "template":
				for _, attr := range n.Attr {
					if attr.Key == "class" && attr.Val == "wah_polyglot_data" {
						dataTemplates++
					}
				}
			case "script":
				if n.FirstChild != nil {
					scripts = append(scripts, n.FirstChild.Data)
				}
			case "p":
				if n.FirstChild != nil {
					paragraphs = append(paragraphs, n.FirstChild.Data)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	assert.Equal(t, 3, dataTemplates)
	assert.Equal(t, []string{"before", "after"}, paragraphs)
	require.Len(t, scripts, 1)
	assert.Equal(t, string(polyglot.HTMLPlusTarScript()), scripts[0])
}

func TestCompose_HTMLTarSynthesizesAnchors(t *testing.T) {
	t.Parallel()

	template := "<!DOCTYPE html>\n<html>\n<head><title>t</title></head>\n<body><p>x</p></body>\n</html>\n"

	in := htmlTarInputs(t, template)
	result, err := composer(nil).Compose(context.Background(), in)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{anchor.ContentID, anchor.ScriptID}, result.Synthesized)
	assert.True(t, strings.HasSuffix(string(result.Bytes), "<p>x</p></body>\n</html>\n"))
}

func TestCompose_HTMLTarErrors(t *testing.T) {
	t.Parallel()

	t.Run("template required", func(t *testing.T) {
		t.Parallel()
		in := htmlTarInputs(t, tarTemplate)
		in.IndexHTML = nil
		_, err := composer(nil).Compose(context.Background(), in)
		assert.ErrorIs(t, err, polyglot.ErrTemplateRequired)
	})

	t.Run("anchor order", func(t *testing.T) {
		t.Parallel()
		template := "<html><head></head><body><script id=\"" + anchor.ScriptID + "\"></script>" +
			"<template id=\"" + anchor.ContentID + "\"></template></body></html>"
		_, err := composer(nil).Compose(context.Background(), htmlTarInputs(t, template))
		assert.ErrorIs(t, err, polyglot.ErrAnchorOrder)
	})

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()
		_, err := composer(nil).Compose(context.Background(), htmlTarInputs(t, "<p>no root</p>"))

		var missing *anchor.MissingNodeError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, anchor.MissingRoot, missing.Kind)
	})

	t.Run("unembeddable rootfs name", func(t *testing.T) {
		t.Parallel()
		in := htmlTarInputs(t, tarTemplate)
		in.RootFS = []polyglot.Entry{
			{Name: `say "hi".txt`, Data: []byte("x")},
			{Name: "ok.txt", Data: []byte("y")},
		}
		result, err := composer(nil).Compose(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, []string{"../x", `say "hi".txt`}, result.Skipped)
		assert.Equal(t, []string{polyglot.BootPath, "etc/motd", "ok.txt"}, result.Entries)
	})
}

// archiveNames reads the entry names back through a tar reader and through
// the data template attributes of the parsed page.
func archiveNames(t *testing.T, out []byte) ([]string, []string) {
	t.Helper()

	var tarNames []string
	tr := tar.NewReader(bytes.NewReader(out))
	_, err := tr.Next()
	require.NoError(t, err)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		tarNames = append(tarNames, hdr.Name)
	}

	root, err := html.Parse(bytes.NewReader(out))
	require.NoError(t, err)

	clean := strings.NewReplacer("\x00", "", "\uFFFD", "")
	var htmlNames []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "template" {
			attrs := map[string]string{}
			for _, attr := range n.Attr {
				if _, seen := attrs[attr.Key]; !seen {
					attrs[attr.Key] = attr.Val
				}
			}
			if attrs["class"] == htmltar.DataClass {
				name := clean.Replace(attrs[htmltar.IDAttr])
				if dir, ok := attrs[htmltar.DirAttr]; ok {
					name = dir + "/" + name
				}
				htmlNames = append(htmlNames, name)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return tarNames, htmlNames
}

func TestCompose_HTMLTarRootFSNames(t *testing.T) {
	t.Parallel()

	dir := "node_modules/@scope/" + strings.Repeat("d", 30) + "/dist/"
	long := dir + strings.Repeat("f", 102-len(dir)-len(".js")) + ".js"
	require.Len(t, long, 102)

	in := htmlTarInputs(t, tarTemplate)
	in.TrailingZip = nil
	in.RootFS = []polyglot.Entry{
		{Name: long, Data: []byte("export default 1;\n")},
		{Name: "assets/a=b.css", Data: []byte("p{}")},
		{Name: "docs/R&D.txt", Data: []byte("research")},
		{Name: "it's <here>.txt", Data: []byte("quote")},
		{Name: strings.Repeat("x", 150) + "/" + strings.Repeat("y", 98), Data: []byte("deep")},
	}

	result, err := composer(nil).Compose(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)

	want := []string{polyglot.BootPath}
	for _, entry := range in.RootFS {
		want = append(want, entry.Name)
	}
	assert.Equal(t, want, result.Entries)

	tarNames, htmlNames := archiveNames(t, result.Bytes)
	assert.Equal(t, want, tarNames)
	assert.Equal(t, want, htmlNames)

	script := string(polyglot.HTMLPlusTarScript())
	assert.Contains(t, script, htmltar.IDAttr)
	assert.Contains(t, script, htmltar.DirAttr)
}

func TestCompose_HTMLTarLongHead(t *testing.T) {
	t.Parallel()

	licence := "<!--\n  Copyright 2026 The Example Authors.\n  Licensed under the Apache License, Version 2.0.\n-->\n"
	template := licence + tarTemplate
	require.Greater(t, len(splitTemplate(t, template).head), htmltar.MaxHeadLen)

	result, err := composer(nil).Compose(context.Background(), htmlTarInputs(t, template))
	require.NoError(t, err)

	out := string(result.Bytes)
	assert.True(t, strings.HasPrefix(out, "<!--"))
	assert.Contains(t, out, template[:strings.Index(template, "<template")])

	tarNames, htmlNames := archiveNames(t, result.Bytes)
	assert.Equal(t, result.Entries, tarNames)
	assert.Equal(t, result.Entries, htmlNames)
}
