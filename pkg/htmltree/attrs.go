package htmltree

import (
	"strings"

	"golang.org/x/net/html"
)

// parseAttributes scans the attributes of a raw start tag.
//
// The tokenizer only hands out unescaped values, and the anchor arithmetic
// needs the bytes as written, so attributes are scanned from the raw tag.
func parseAttributes(rawTag string) []Attribute {
	pos := 1 // past '<'
	for pos < len(rawTag) && !isTagSpace(rawTag[pos]) && rawTag[pos] != '/' && rawTag[pos] != '>' {
		pos++
	}

	var attrs []Attribute

	for {
		for pos < len(rawTag) && (isTagSpace(rawTag[pos]) || rawTag[pos] == '/') {
			pos++
		}
		if pos >= len(rawTag) || rawTag[pos] == '>' {
			return attrs
		}

		keyStart := pos
		// A leading '=' belongs to the name.
		pos++
		for pos < len(rawTag) && !isTagSpace(rawTag[pos]) && !strings.ContainsRune("/>=", rune(rawTag[pos])) {
			pos++
		}
		key := strings.ToLower(rawTag[keyStart:pos])

		for pos < len(rawTag) && isTagSpace(rawTag[pos]) {
			pos++
		}

		var raw string
		if pos < len(rawTag) && rawTag[pos] == '=' {
			pos++
			for pos < len(rawTag) && isTagSpace(rawTag[pos]) {
				pos++
			}
			raw, pos = scanValue(rawTag, pos)
		}

		attrs = append(attrs, Attribute{
			Key: key,
			Val: html.UnescapeString(raw),
			Raw: raw,
		})
	}
}

func scanValue(rawTag string, pos int) (string, int) {
	if pos >= len(rawTag) {
		return "", pos
	}

	if quote := rawTag[pos]; quote == '"' || quote == '\'' {
		end := strings.IndexByte(rawTag[pos+1:], quote)
		if end < 0 {
			return rawTag[pos+1:], len(rawTag)
		}
		return rawTag[pos+1 : pos+1+end], pos + end + 2
	}

	start := pos
	for pos < len(rawTag) && !isTagSpace(rawTag[pos]) && rawTag[pos] != '>' {
		pos++
	}
	return rawTag[start:pos], pos
}

func isTagSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	default:
		return false
	}
}
