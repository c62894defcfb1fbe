// Package langdetect sniffs the kind of build inputs. It uses go-enry for
// text content and magic numbers for the binary formats a build consumes,
// so that a page passed where a script is expected can be reported before
// it ends up inside an artifact.
package langdetect

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Kind is a coarse content classification.
type Kind string

// Kinds reported by Detect.
const (
	KindWasm       Kind = "wasm"
	KindZip        Kind = "zip"
	KindHTML       Kind = "html"
	KindMarkdown   Kind = "markdown"
	KindJavaScript Kind = "javascript"
	KindText       Kind = "text"
	KindBinary     Kind = "binary"
	KindEmpty      Kind = "empty"
)

var (
	wasmMagic     = []byte("\x00asm")
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
)

// candidates limits the classifier to languages a build input can be.
var candidates = []string{"JavaScript", "TypeScript", "HTML", "Markdown", "JSON", "CSS", "Text"}

// Detect classifies content. name is used for its extension only and may
// be empty.
func Detect(name string, content []byte) Kind {
	switch {
	case len(content) == 0:
		return KindEmpty
	case bytes.HasPrefix(content, wasmMagic):
		return KindWasm
	case bytes.HasPrefix(content, zipMagic), bytes.HasPrefix(content, zipEmptyMagic):
		return KindZip
	case enry.IsBinary(content):
		return KindBinary
	}

	if kind := detectByPattern(content); kind != "" {
		return kind
	}

	switch Language(name, content) {
	case "html":
		return KindHTML
	case "markdown":
		return KindMarkdown
	case "javascript", "typescript":
		return KindJavaScript
	}
	return KindText
}

// Language returns the go-enry language of text content in lower case, or
// "text" when no language is recognized with confidence.
func Language(name string, content []byte) string {
	if name != "" {
		langs := enry.GetLanguagesByExtension(filepath.Base(name), content, nil)
		for _, lang := range langs {
			if slices.Contains(candidates, lang) {
				return normalize(lang)
			}
		}
		if len(langs) == 1 {
			return normalize(langs[0])
		}
	}
	if lang, safe := enry.GetLanguageByShebang(content); safe {
		return normalize(lang)
	}
	if lang, safe := enry.GetLanguageByClassifier(content, candidates); safe && lang != "" {
		return normalize(lang)
	}
	return "text"
}

// detectByPattern recognizes markup that the classifier is unreliable on
// for short inputs.
func detectByPattern(content []byte) Kind {
	trimmed := bytes.ToLower(bytes.TrimSpace(content))

	if bytes.HasPrefix(trimmed, []byte("<!doctype html")) ||
		bytes.HasPrefix(trimmed, []byte("<html")) ||
		bytes.Contains(trimmed, []byte("<head>")) ||
		bytes.Contains(trimmed, []byte("<body")) {
		return KindHTML
	}

	text := string(content)
	if strings.Contains(text, "export default") ||
		strings.Contains(text, "import.meta") ||
		strings.Contains(text, "WebAssembly.") {
		return KindJavaScript
	}
	return ""
}

// MismatchError reports an input whose content does not match its role.
type MismatchError struct {
	Input string
	Want  []Kind
	Got   Kind
}

// Error implements error.
func (e *MismatchError) Error() string {
	want := make([]string, 0, len(e.Want))
	for _, kind := range e.Want {
		want = append(want, string(kind))
	}
	return fmt.Sprintf("%s looks like %s, expected %s", e.Input, e.Got, strings.Join(want, " or "))
}

// Expect classifies content and returns a *MismatchError unless it is one
// of want.
func Expect(name string, content []byte, want ...Kind) (Kind, error) {
	got := Detect(name, content)
	for _, kind := range want {
		if got == kind {
			return got, nil
		}
	}
	return got, &MismatchError{Input: name, Want: want, Got: got}
}

func normalize(lang string) string {
	return strings.ToLower(lang)
}
