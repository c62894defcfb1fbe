package polyglot

import (
	"encoding/base64"
	"fmt"
	"math/bits"
	"strings"
)

// Loader selects how a standalone page turns its data URI into bytes.
type Loader int

const (
	// LoaderNone is the zero value; no standalone page was rendered.
	LoaderNone Loader = iota
	// LoaderInline fetches the data URI directly.
	LoaderInline
	// LoaderChunked decodes the URI in script, for URIs fetch rejects.
	LoaderChunked
)

// String implements fmt.Stringer.
func (l Loader) String() string {
	switch l {
	case LoaderInline:
		return "inline"
	case LoaderChunked:
		return "chunked"
	default:
		return "none"
	}
}

// Size classes of data URI lengths, as floor(log2(length)).
const (
	inlineMaxLog2  = 24
	chunkedMaxLog2 = 31
)

// ClassifyURI picks the loader for a data URI of the given length.
func ClassifyURI(length int64) (Loader, error) {
	log2 := bits.Len64(uint64(length)) - 1

	switch {
	case log2 < inlineMaxLog2:
		return LoaderInline, nil
	case log2 < chunkedMaxLog2:
		return LoaderChunked, nil
	default:
		return LoaderNone, fmt.Errorf("%w: data URI of %d bytes", ErrPayloadTooLarge, length)
	}
}

// DataURILen returns the length of the data URI carrying a module of n bytes.
func DataURILen(n int) int64 {
	return int64(len(dataURIPrefix)) + int64(base64.StdEncoding.EncodedLen(n))
}

// RenderHTML embeds module into the standalone page template.
func RenderHTML(module []byte) ([]byte, Loader, error) {
	loader, err := ClassifyURI(DataURILen(len(module)))
	if err != nil {
		return nil, LoaderNone, err
	}

	var uri strings.Builder
	uri.Grow(int(DataURILen(len(module))))
	uri.WriteString(dataURIPrefix)
	enc := base64.NewEncoder(base64.StdEncoding, &uri)
	_, _ = enc.Write(module)
	_ = enc.Close()

	snippet := inlineLoaderSnippet
	if loader == LoaderChunked {
		snippet = chunkedLoaderSnippet
	}

	page := strings.Replace(stage0HTMLTemplate, dataURIPlaceholder, uri.String(), 1)
	page = strings.Replace(page, loaderPlaceholder, strings.TrimRight(snippet, "\n"), 1)

	return []byte(page), loader, nil
}
