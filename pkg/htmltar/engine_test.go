package htmltar_test

import (
	"archive/tar"
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/yaklabco/wahpolyglot/pkg/htmltar"
)

const testDoc = "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<title>t</title>\n" +
	"<template id=\"anchor\"></template>\n</head>\n" +
	"<body><script id=\"after\">go()</script></body>\n</html>\n"

func splitDoc(t *testing.T) (int, int) {
	t.Helper()

	headLen := strings.Index(testDoc, `"en">`) + len(`"en">`)
	insertAt := strings.Index(testDoc, `<template id="anchor">`)
	require.Positive(t, headLen)
	require.Positive(t, insertAt)
	return headLen, insertAt
}

// assemble writes a complete archive into testDoc and returns the bytes
// together with the offsets at which each record header starts.
func assemble(t *testing.T, entries []htmltar.Entry) ([]byte, []int) {
	t.Helper()

	headLen, insertAt := splitDoc(t)
	engine := htmltar.NewEngine()

	start, err := engine.StartOfFile([]byte(testDoc[:headLen]), insertAt)
	require.NoError(t, err)
	require.Equal(t, headLen, start.Consumed)

	out := []byte(testDoc[:headLen])
	out = append(out, start.Header...)
	out = append(out, start.Extra...)
	out = append(out, testDoc[start.Consumed:insertAt]...)

	var headers []int
	for idx, entry := range entries {
		var rec htmltar.Record
		if idx == 0 {
			rec, err = engine.Insert(entry)
		} else {
			rec, err = engine.Continue(entry)
		}
		require.NoError(t, err)

		headers = append(headers, len(out)+len(rec.Padding))
		out = rec.AppendTo(out)
	}

	eof, err := engine.EOF()
	require.NoError(t, err)
	headers = append(headers, len(out)+len(eof.Padding))
	out = eof.AppendTo(out)

	return append(out, testDoc[insertAt:]...), headers
}

func testEntries() []htmltar.Entry {
	return []htmltar.Entry{
		{Name: "boot/wah-init.wasm", Data: []byte("\x00asm\x01\x00\x00\x00")},
		{Name: "empty.txt", Data: nil},
		{Name: "dir/ünïcode name.txt", Data: []byte("héllo <world> & \"friends\"\n")},
		{Name: "exact-block.bin", Data: bytes.Repeat([]byte{0xa5}, 384)},
		{Name: "near-block.bin", Data: bytes.Repeat([]byte{0x5a}, 360)},
		{Name: "large.bin", Data: bytes.Repeat([]byte("0123456789"), 1000)},
	}
}

func TestEngine_ReadableAsTar(t *testing.T) {
	t.Parallel()

	entries := testEntries()
	out, _ := assemble(t, entries)
	headLen, insertAt := splitDoc(t)

	tr := tar.NewReader(bytes.NewReader(out))

	first, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, testDoc[:headLen]+"<!--", first.Name)

	content, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "-->"))
	assert.True(t, strings.HasSuffix(string(content), testDoc[headLen:insertAt]))

	for _, entry := range entries {
		hdr, err := tr.Next()
		require.NoError(t, err, entry.Name)
		assert.Equal(t, entry.Name, hdr.Name)
		assert.Equal(t, byte(tar.TypeReg), hdr.Typeflag)

		encoded, err := io.ReadAll(tr)
		require.NoError(t, err)

		decoded, err := base64.StdEncoding.DecodeString(string(encoded))
		require.NoError(t, err, entry.Name)
		assert.Equal(t, len(entry.Data), len(decoded), entry.Name)
		assert.True(t, bytes.Equal(entry.Data, decoded), entry.Name)
	}

	_, err = tr.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEngine_HeadersOnBlockBoundaries(t *testing.T) {
	t.Parallel()

	out, headers := assemble(t, testEntries())

	for _, offset := range headers {
		assert.Zero(t, offset%htmltar.BlockSize, "header at %d", offset)
	}

	eof := headers[len(headers)-1]
	assert.Equal(t, make([]byte, 2*htmltar.BlockSize), out[eof:eof+2*htmltar.BlockSize])

	for _, offset := range headers[:len(headers)-1] {
		block := out[offset : offset+htmltar.BlockSize]
		assert.Equal(t, byte('"'), block[99])
		assert.Equal(t, byte('>'), block[511])
		assert.Equal(t, 1, bytes.Count(block, []byte(">")), "header at %d", offset)
		assert.Equal(t, `<template class="wah_polyglot_data" _wahtml_id="`,
			string(out[offset-48:offset]))
	}
}

func namesOf(entries []htmltar.Entry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names
}

// htmlNames returns the entry names as the unpacking script sees them.
func htmlNames(t *testing.T, out []byte) []string {
	t.Helper()

	root, err := html.Parse(bytes.NewReader(out))
	require.NoError(t, err)

	clean := strings.NewReplacer("\x00", "", "\uFFFD", "")
	var names []string

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
				names = append(names, name)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return names
}

func TestEngine_ParsesAsHTML(t *testing.T) {
	t.Parallel()

	entries := testEntries()
	out, _ := assemble(t, entries)

	root, err := html.Parse(bytes.NewReader(out))
	require.NoError(t, err)

	var (
		eofs  int
		after bool
		title string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attrs := map[string]string{}
			for _, attr := range n.Attr {
				attrs[attr.Key] = attr.Val
			}

			switch {
			case n.Data == "template" && attrs["class"] == htmltar.EOFClass:
				eofs++
			case n.Data == "script" && attrs["id"] == "after":
				after = true
			case n.Data == "title" && n.FirstChild != nil:
				title = n.FirstChild.Data
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	assert.Equal(t, namesOf(entries), htmlNames(t, out))
	assert.Equal(t, 1, eofs)
	assert.True(t, after)
	assert.Equal(t, "t", title)
}

func TestEngine_StretchesFileBeforeBoundary(t *testing.T) {
	t.Parallel()

	headLen, insertAt := splitDoc(t)
	engine := htmltar.NewEngine()

	_, err := engine.StartOfFile([]byte(testDoc[:headLen]), insertAt)
	require.NoError(t, err)

	// 360 bytes encode to 480, leaving 32 bytes before the boundary.
	rec, err := engine.Insert(htmltar.Entry{Name: "a", Data: make([]byte, 360)})
	require.NoError(t, err)
	assert.Len(t, rec.File, 480+33)
	assert.Equal(t, strings.Repeat("\n", 33), string(rec.File[480:]))

	// 384 bytes encode to exactly one block.
	rec, err = engine.Continue(htmltar.Entry{Name: "b", Data: make([]byte, 384)})
	require.NoError(t, err)
	assert.Len(t, rec.File, 512+1)

	// 3 bytes encode to 4 and need no stretch.
	rec, err = engine.Continue(htmltar.Entry{Name: "c", Data: []byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, "YWJj", string(rec.File))
}

func TestEngine_Sequence(t *testing.T) {
	t.Parallel()

	head := []byte("<html>")
	entry := htmltar.Entry{Name: "x", Data: []byte("x")}

	t.Run("insert before start", func(t *testing.T) {
		t.Parallel()
		_, err := htmltar.NewEngine().Insert(entry)
		assert.ErrorIs(t, err, htmltar.ErrSequence)
	})

	t.Run("continue before insert", func(t *testing.T) {
		t.Parallel()
		engine := htmltar.NewEngine()
		_, err := engine.StartOfFile(head, 10)
		require.NoError(t, err)
		_, err = engine.Continue(entry)
		assert.ErrorIs(t, err, htmltar.ErrSequence)
	})

	t.Run("insert twice", func(t *testing.T) {
		t.Parallel()
		engine := htmltar.NewEngine()
		_, err := engine.StartOfFile(head, 10)
		require.NoError(t, err)
		_, err = engine.Insert(entry)
		require.NoError(t, err)
		_, err = engine.Insert(entry)
		assert.ErrorIs(t, err, htmltar.ErrSequence)
	})

	t.Run("start twice", func(t *testing.T) {
		t.Parallel()
		engine := htmltar.NewEngine()
		_, err := engine.StartOfFile(head, 10)
		require.NoError(t, err)
		_, err = engine.StartOfFile(head, 10)
		assert.ErrorIs(t, err, htmltar.ErrSequence)
	})

	t.Run("records after eof", func(t *testing.T) {
		t.Parallel()
		engine := htmltar.NewEngine()
		_, err := engine.StartOfFile(head, 10)
		require.NoError(t, err)
		_, err = engine.EOF()
		require.NoError(t, err)
		_, err = engine.EOF()
		assert.ErrorIs(t, err, htmltar.ErrSequence)
		_, err = engine.Continue(entry)
		assert.ErrorIs(t, err, htmltar.ErrSequence)
	})

	t.Run("eof before start", func(t *testing.T) {
		t.Parallel()
		_, err := htmltar.NewEngine().EOF()
		assert.ErrorIs(t, err, htmltar.ErrSequence)
	})
}

func TestEngine_StartOfFileLongHead(t *testing.T) {
	t.Parallel()

	long := "<html lang=\"en\" " + strings.Repeat("data-x=\"1\" ", 10) + ">"
	require.Greater(t, len(long), htmltar.MaxHeadLen)

	tests := []struct {
		name     string
		head     string
		consumed int
	}{
		{name: "fits", head: strings.Repeat("a", htmltar.MaxHeadLen), consumed: htmltar.MaxHeadLen},
		{name: "cut after doctype", head: "<!DOCTYPE html>\n" + long, consumed: len("<!DOCTYPE html>")},
		{name: "lower case doctype", head: "<!doctype html>" + long, consumed: len("<!doctype html>")},
		{name: "byte order mark kept", head: "\xef\xbb\xbf" + long, consumed: 3},
		{name: "leading comment", head: "<!-- licence -->" + long, consumed: 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			doc := testCase.head + "<body><p>x</p></body></html>"
			start, err := htmltar.NewEngine().StartOfFile([]byte(testCase.head), len(testCase.head))
			require.NoError(t, err)
			assert.Equal(t, testCase.consumed, start.Consumed)

			out := []byte(doc[:start.Consumed])
			out = append(out, start.Header...)
			out = append(out, start.Extra...)
			out = append(out, doc[start.Consumed:]...)

			first, err := tar.NewReader(bytes.NewReader(out)).Next()
			require.NoError(t, err)
			assert.Equal(t, doc[:start.Consumed]+"<!--", first.Name)
			assert.Equal(t, int64(len(start.Extra)+len(testCase.head)-start.Consumed), first.Size)
		})
	}

	_, err := htmltar.NewEngine().StartOfFile([]byte("<html>"), 3)
	require.Error(t, err)
}

func TestEngine_LongNamesUsePrefix(t *testing.T) {
	t.Parallel()

	entries := []htmltar.Entry{
		{Name: "boot/wah-init.wasm", Data: []byte("\x00asm")},
		{Name: "node_modules/@scope/" + strings.Repeat("p", 60) + "/dist/index.module.js", Data: []byte("js")},
		{Name: strings.Repeat("d", 155) + "/" + strings.Repeat("f", htmltar.MaxNameLen), Data: []byte("deep")},
		{Name: "short.txt", Data: []byte("s")},
	}
	require.Greater(t, len(entries[1].Name), htmltar.MaxNameLen)
	require.Len(t, entries[2].Name, htmltar.MaxPathLen)

	out, headers := assemble(t, entries)
	for _, offset := range headers {
		assert.Zero(t, offset%htmltar.BlockSize, "header at %d", offset)
	}

	tr := tar.NewReader(bytes.NewReader(out))
	_, err := tr.Next()
	require.NoError(t, err)
	for _, entry := range entries {
		hdr, err := tr.Next()
		require.NoError(t, err)
		assert.Equal(t, entry.Name, hdr.Name)
	}

	assert.Equal(t, namesOf(entries), htmlNames(t, out))
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry string
		ok    bool
	}{
		{name: "simple", entry: "a.txt", ok: true},
		{name: "nested", entry: "a/b/c.txt", ok: true},
		{name: "spaces and unicode", entry: "dïr/a b.txt", ok: true},
		{name: "longest field", entry: strings.Repeat("n", htmltar.MaxNameLen), ok: true},
		{name: "single quote", entry: "a'b", ok: true},
		{name: "angles", entry: "a<b>c", ok: true},
		{name: "equals", entry: "a=b.css", ok: true},
		{name: "ampersand", entry: "R&D.txt", ok: true},
		{name: "split at slash", entry: "dir/" + strings.Repeat("n", htmltar.MaxNameLen), ok: true},
		{name: "longest path", entry: strings.Repeat("d", 155) + "/" + strings.Repeat("n", htmltar.MaxNameLen), ok: true},
		{name: "empty", entry: ""},
		{name: "too long without slash", entry: strings.Repeat("n", htmltar.MaxNameLen+1)},
		{name: "too long", entry: strings.Repeat("d", 156) + "/" + strings.Repeat("n", htmltar.MaxNameLen)},
		{name: "base too long", entry: "dir/" + strings.Repeat("n", htmltar.MaxNameLen+1)},
		{name: "double quote", entry: `a"b`},
		{name: "character reference", entry: "a&amp;b"},
		{name: "legacy reference", entry: "&lt.txt"},
		{name: "nul", entry: "a\x00b"},
		{name: "angle in directory", entry: "a>b/" + strings.Repeat("n", htmltar.MaxNameLen)},
		{name: "quoted value in directory", entry: "a= 'b/" + strings.Repeat("n", htmltar.MaxNameLen)},
		{name: "quote in directory", entry: "it's/" + strings.Repeat("n", htmltar.MaxNameLen), ok: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := htmltar.ValidateName(testCase.entry)
			if testCase.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, htmltar.ErrUnembeddableName))
		})
	}
}
