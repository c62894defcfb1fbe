// Package htmltar writes ustar archives that are also well-formed HTML.
//
// The archive starts at byte zero of an HTML document. The first header
// holds the document head (everything through the root opening tag, when it
// fits) in its name field and hides the rest of the block in a comment. Every embedded
// file then becomes a template element: the attribute that opens in the
// padding before a header is closed inside that header's name field, the
// header block ends with the closing '>' of the start tag, and the member
// data is the base64 text of the file.
//
// Tar readers see the document prefix as a first member, then one member
// per file whose content is base64 text, then the end-of-archive marker.
// Long entry names use the ustar prefix field; the template then carries
// the directory in a second attribute.
package htmltar

import (
	"archive/tar"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// BlockSize is the tar block size.
const BlockSize = 512

const (
	nameLen     = 100
	nameQuote   = nameLen - 1
	tagClose    = BlockSize - 1
	chksumStart = 148
	chksumEnd   = 156
	prefixStart = 345
	prefixLen   = 155

	// MaxHeadLen is the longest document head placed in the first header;
	// the comment opener must fit into the name field after it. Longer
	// heads are carried into the content of the first member.
	MaxHeadLen = nameLen - len(commentOpen)

	// MaxNameLen is the longest name held by the name field alone. The
	// field needs at least one NUL terminator before the closing quote.
	MaxNameLen = nameQuote - 1

	// MaxPathLen is the longest entry name. Names longer than MaxNameLen
	// are split at a slash into the ustar prefix and name fields.
	MaxPathLen = prefixLen + 1 + MaxNameLen
)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
	doctypeOpen  = "<!doctype"

	// DataClass marks templates that carry an embedded file.
	DataClass = "wah_polyglot_data"
	// EOFClass marks the template that carries the end-of-archive blocks.
	EOFClass = "wah_polyglot_eof"
	// IDAttr holds the entry name, or its part after the directory, on
	// data templates.
	IDAttr = "_wahtml_id"
	// DirAttr holds the directory part of names that do not fit the name
	// field. The full name is DirAttr + "/" + IDAttr.
	DirAttr = "_wahtml_dir"

	dataStart = `<template class="` + DataClass + `" `
	dataOpen  = dataStart + IDAttr + `="`
	eofOpen   = `<template class="` + EOFClass + `">`
	tail      = `</template>`

	// maxOpen is the longest data opener, carrying a full prefix.
	maxOpen = len(dataOpen) + len(DirAttr) + len(`="" `) + prefixLen
)

var (
	utf8BOM = []byte("\xef\xbb\xbf")

	// ErrSequence is returned when records are requested out of order.
	ErrSequence = errors.New("htmltar: record requested out of sequence")

	// ErrUnembeddableName is returned for entry names that cannot be placed
	// in an HTML attribute and the ustar name fields.
	ErrUnembeddableName = errors.New("htmltar: entry name cannot be embedded")
)

// Start is the first header of the archive.
type Start struct {
	// Header is the remainder of the first header block; the block begins
	// with the document head, which the caller has already written.
	Header []byte

	// Extra closes the comment opened in the header and is the first
	// content of the head member.
	Extra []byte

	// Consumed counts the document bytes absorbed by the header. The caller
	// writes the document up to this offset before Header, and continues
	// copying the document from it after Extra.
	Consumed int
}

// Entry is a file to embed.
type Entry struct {
	Name string
	Data []byte
}

// Record is one embedded entry, or the end-of-archive marker. Its parts
// must be written in field order.
type Record struct {
	Padding []byte
	Header  []byte
	File    []byte
	Tail    []byte
}

// Len returns the total length of the record.
func (r Record) Len() int {
	return len(r.Padding) + len(r.Header) + len(r.File) + len(r.Tail)
}

// AppendTo appends the record parts to dst in order.
func (r Record) AppendTo(dst []byte) []byte {
	dst = append(dst, r.Padding...)
	dst = append(dst, r.Header...)
	dst = append(dst, r.File...)
	return append(dst, r.Tail...)
}

type state int

const (
	stateNew state = iota
	stateStarted
	stateEntries
	stateClosed
)

// Engine produces the records of one archive. It tracks the output offset,
// so every record it returns must be written, in order, with only the
// document bytes announced by Start in between.
type Engine struct {
	state  state
	offset int64
}

// NewEngine returns an Engine ready for StartOfFile.
func NewEngine() *Engine {
	return &Engine{}
}

// StartOfFile opens the archive. head is the document up to and including
// the root opening tag; insertAt is the document offset where the first
// entry is to be placed. The document between the two becomes the content
// of the head member. A head longer than MaxHeadLen is cut back to its
// doctype, or to nothing, and the rest moves into the head member.
func (e *Engine) StartOfFile(head []byte, insertAt int) (Start, error) {
	if e.state != stateNew {
		return Start{}, fmt.Errorf("%w: start of file after records", ErrSequence)
	}
	if insertAt < len(head) {
		return Start{}, fmt.Errorf("htmltar: insertion offset %d lies inside the %d byte head", insertAt, len(head))
	}

	consumed := headCut(head)

	extra := []byte(commentClose)
	between := int64(insertAt - consumed)

	end := BlockSize + int64(len(extra)) + between
	if gap := gapAfter(end); gap < maxOpen {
		extra = append(extra, bytes.Repeat([]byte{'\n'}, gap+1)...)
	}
	size := int64(len(extra)) + between

	block, err := header(size)
	if err != nil {
		return Start{}, err
	}

	name := block[:nameLen]
	copy(name, head[:consumed])
	copy(name[consumed:], commentOpen)
	checksum(block)

	e.state = stateStarted
	e.offset = BlockSize + size

	return Start{
		Header:   block[consumed:],
		Extra:    extra,
		Consumed: consumed,
	}, nil
}

// headCut returns how much of head goes into the first header. The cut
// must leave the comment opener outside of any markup, and a byte order
// mark stays first.
func headCut(head []byte) int {
	if len(head) <= MaxHeadLen {
		return len(head)
	}

	start := 0
	if bytes.HasPrefix(head, utf8BOM) {
		start = len(utf8BOM)
	}

	rest := head[start:]
	if len(rest) >= len(doctypeOpen) && bytes.EqualFold(rest[:len(doctypeOpen)], []byte(doctypeOpen)) {
		if end := bytes.IndexByte(rest, '>'); end >= 0 && start+end < MaxHeadLen {
			return start + end + 1
		}
	}
	return start
}

// Insert returns the record of the first entry.
func (e *Engine) Insert(entry Entry) (Record, error) {
	if e.state != stateStarted {
		return Record{}, fmt.Errorf("%w: insert must directly follow start of file", ErrSequence)
	}

	rec, err := e.entry(entry)
	if err != nil {
		return Record{}, err
	}

	e.state = stateEntries
	return rec, nil
}

// Continue returns the record of every entry after the first.
func (e *Engine) Continue(entry Entry) (Record, error) {
	if e.state != stateEntries {
		return Record{}, fmt.Errorf("%w: continue before insert or after end of archive", ErrSequence)
	}
	return e.entry(entry)
}

// EOF returns the end-of-archive record and closes the engine.
func (e *Engine) EOF() (Record, error) {
	if e.state != stateStarted && e.state != stateEntries {
		return Record{}, fmt.Errorf("%w: end of archive before start or twice", ErrSequence)
	}

	rec := Record{
		Padding: e.padding(eofOpen),
		Header:  make([]byte, 2*BlockSize),
		Tail:    []byte(tail),
	}

	e.offset += int64(rec.Len())
	e.state = stateClosed
	return rec, nil
}

func (e *Engine) entry(entry Entry) (Record, error) {
	if err := ValidateName(entry.Name); err != nil {
		return Record{}, err
	}
	prefix, base, _ := splitName(entry.Name)

	open := dataOpen
	if prefix != "" {
		open = dataStart + DirAttr + `="` + prefix + `" ` + IDAttr + `="`
	}
	padding := e.padding(open)

	encoded := base64.StdEncoding.EncodedLen(len(entry.Data))
	end := e.offset + int64(len(padding)) + BlockSize + int64(encoded)

	// The tail and the next opening tag must fit before the next header.
	stretch := 0
	if gap := gapAfter(end); gap < len(tail)+maxOpen {
		stretch = gap + 1
	}

	file := make([]byte, encoded, encoded+stretch)
	base64.StdEncoding.Encode(file, entry.Data)
	file = append(file, bytes.Repeat([]byte{'\n'}, stretch)...)

	block, err := header(int64(len(file)))
	if err != nil {
		return Record{}, err
	}
	copy(block, base)
	copy(block[prefixStart:prefixStart+prefixLen], prefix)
	block[nameQuote] = '"'
	block[tagClose] = '>'
	checksum(block)

	rec := Record{
		Padding: padding,
		Header:  block,
		File:    file,
		Tail:    []byte(tail),
	}

	e.offset += int64(rec.Len())
	return rec, nil
}

// padding fills the rest of the current block with spaces followed by open.
// Every earlier record leaves room for the longest opener.
func (e *Engine) padding(open string) []byte {
	gap := gapAfter(e.offset)
	if gap < len(open) {
		panic(fmt.Sprintf("htmltar: %d bytes left before block boundary, need %d", gap, len(open)))
	}

	out := bytes.Repeat([]byte{' '}, gap-len(open))
	return append(out, open...)
}

// ValidateName reports whether name can be embedded as an entry name.
// The name must read back unchanged from the HTML attribute, so it may not
// hold a double quote or a character reference. Names longer than
// MaxNameLen need a slash that leaves at most MaxNameLen bytes after it.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnembeddableName)
	}
	if idx := strings.IndexAny(name, "\"\x00"); idx >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrUnembeddableName, name, name[idx])
	}
	if html.UnescapeString(name) != name {
		return fmt.Errorf("%w: %q contains a character reference", ErrUnembeddableName, name)
	}
	if _, _, err := splitName(name); err != nil {
		return err
	}
	return nil
}

// splitName divides name into the ustar prefix and name fields, keeping
// as much as possible in the name field. The prefix sits among the raw
// header fields inside the start tag, where '>' would end the tag and a
// quote after '=' would open an attribute value running past it.
func splitName(name string) (string, string, error) {
	if len(name) <= MaxNameLen {
		return "", name, nil
	}
	if len(name) > MaxPathLen {
		return "", "", fmt.Errorf("%w: %q is longer than %d bytes", ErrUnembeddableName, name, MaxPathLen)
	}

	for idx := len(name) - MaxNameLen - 1; idx < len(name); idx++ {
		if name[idx] != '/' {
			continue
		}
		prefix, base := name[:idx], name[idx+1:]
		if prefix == "" || base == "" || len(prefix) > prefixLen {
			break
		}
		if !rawFieldSafe(prefix) {
			return "", "", fmt.Errorf("%w: directory of %q cannot be stored in the header", ErrUnembeddableName, name)
		}
		return prefix, base, nil
	}

	return "", "", fmt.Errorf("%w: %q has no directory split leaving at most %d bytes", ErrUnembeddableName, name, MaxNameLen)
}

// rawFieldSafe reports whether s can appear among unquoted attribute
// bytes without ending the start tag.
func rawFieldSafe(s string) bool {
	afterEquals := false
	for idx := range len(s) {
		switch c := s[idx]; c {
		case '>':
			return false
		case '\'':
			if afterEquals {
				return false
			}
		case '=':
			afterEquals = true
		case ' ', '\t', '\n', '\f', '\r':
		default:
			afterEquals = false
		}
	}
	return true
}

// gapAfter returns the distance from offset to the next block boundary.
func gapAfter(offset int64) int {
	return int((BlockSize - offset%BlockSize) % BlockSize)
}

// header renders a ustar header block for a regular file with an all-NUL
// name field. Names are patched in by the caller since ustar proper only
// admits ASCII names.
func header(size int64) ([]byte, error) {
	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)
	err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "_",
		Mode:     0o644,
		Size:     size,
		ModTime:  time.Unix(0, 0),
		Format:   tar.FormatUSTAR,
	})
	if err != nil {
		return nil, fmt.Errorf("htmltar: header of %d byte member: %w", size, err)
	}

	// The writer is abandoned here; only the header block is needed.
	block := buf.Bytes()[:BlockSize:BlockSize]
	clear(block[:nameLen])
	return block, nil
}

// checksum recomputes the header checksum after the block was patched.
func checksum(block []byte) {
	copy(block[chksumStart:chksumEnd], "        ")

	var sum int64
	for _, b := range block {
		sum += int64(b)
	}

	copy(block[chksumStart:chksumEnd], fmt.Sprintf("%06o\x00 ", sum))
}
