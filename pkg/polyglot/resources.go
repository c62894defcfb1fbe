package polyglot

import (
	_ "embed"
)

// Stage resources embedded into every artifact.

//go:embed resources/stage0-wasm.html
var stage0WasmHTML []byte

//go:embed resources/stage1.js
var stage1JS []byte

//go:embed resources/stage1-edit.js
var stage1EditJS []byte

//go:embed resources/stage0-html.html
var stage0HTMLTemplate string

//go:embed resources/stage-snippet-load-URI-b64.js
var chunkedLoaderSnippet string

//go:embed resources/stage0-html_plus_tar.js
var stage0HTMLPlusTarJS []byte

// Placeholders in the standalone HTML template.
const (
	dataURIPlaceholder = "__REPLACE_THIS_WITH_WASM_AS_A_DATA_URI__"
	loaderPlaceholder  = "__REPLACE_THIS_WITH_URI_LOADER__"
	dataURIPrefix      = "data:application/octet-stream;base64,"
)

// inlineLoaderSnippet fetches the data URI in one go.
const inlineLoaderSnippet = `await (async function() { let doc = await fetch(URI_SRC); return await doc.arrayBuffer(); })()`

// Stage0 returns the bootstrap page emitted as the first custom section.
func Stage0() []byte {
	return stage0WasmHTML
}

// Stage1 returns the loader emitted as the second custom section.
func Stage1(edit bool) []byte {
	if edit {
		return stage1EditJS
	}
	return stage1JS
}

// HTMLPlusTarScript returns the script that unpacks html+tar entries.
func HTMLPlusTarScript() []byte {
	return stage0HTMLPlusTarJS
}
