// Package wasmsect splits WebAssembly modules into their top-level sections
// and joins sections back into modules.
//
// Sections are treated as opaque payloads. Nothing beyond the section
// framing and custom section names is decoded or validated.
package wasmsect

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// CustomID is the id of custom sections.
const CustomID byte = 0

// headerLen is the length of the magic number plus version.
const headerLen = 8

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// ErrSectionTooLarge is returned when a section payload exceeds the 32-bit
// size field.
var ErrSectionTooLarge = errors.New("section payload exceeds 4 GiB")

// ParseError reports malformed module framing.
type ParseError struct {
	// Offset is the byte offset in the module where decoding failed.
	Offset int
	Msg    string
	Err    error
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wasm module at byte %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("wasm module at byte %d: %s", e.Offset, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Section is one top-level section. Data is the payload after the size
// field; for custom sections it starts with the encoded name.
type Section struct {
	ID   byte
	Data []byte
}

// Custom builds a custom section from a name and its content.
func Custom(name string, content []byte) Section {
	data := AppendULEB128(make([]byte, 0, 5+len(name)+len(content)), uint32(len(name)))
	data = append(data, name...)
	data = append(data, content...)
	return Section{ID: CustomID, Data: data}
}

// CustomName splits a custom section into its name and content.
// It returns false for other sections or a malformed name.
func (s Section) CustomName() (string, []byte, bool) {
	if s.ID != CustomID {
		return "", nil, false
	}

	nameLen, n, err := ReadULEB128(s.Data)
	if err != nil || uint64(n)+uint64(nameLen) > uint64(len(s.Data)) {
		return "", nil, false
	}

	end := n + int(nameLen)
	return string(s.Data[n:end]), s.Data[end:], true
}

// Splitter splits a module into its ordered sections.
type Splitter interface {
	Split(module []byte) ([]Section, error)
}

// Codec is the default Splitter.
type Codec struct{}

// Split implements Splitter.
func (Codec) Split(module []byte) ([]Section, error) {
	return Split(module)
}

// Split decodes the section framing of module. Section payloads alias
// module.
func Split(module []byte) ([]Section, error) {
	if len(module) < headerLen {
		return nil, &ParseError{Offset: len(module), Msg: "unexpected end of module header"}
	}
	if !bytes.Equal(module[:4], magic) {
		return nil, &ParseError{Offset: 0, Msg: "magic header not detected"}
	}
	if !bytes.Equal(module[4:8], version) {
		return nil, &ParseError{Offset: 4, Msg: fmt.Sprintf("unsupported version %x", module[4:8])}
	}

	var sections []Section

	pos := headerLen
	for pos < len(module) {
		start := pos
		id := module[pos]
		pos++

		size, n, err := ReadULEB128(module[pos:])
		if err != nil {
			return nil, &ParseError{Offset: pos, Msg: "section size", Err: err}
		}
		pos += n

		if uint64(size) > uint64(len(module)-pos) {
			return nil, &ParseError{
				Offset: start,
				Msg:    fmt.Sprintf("section %d of %d bytes extends past end of module", id, size),
			}
		}

		section := Section{ID: id, Data: module[pos : pos+int(size)]}
		if id == CustomID {
			name, _, ok := section.CustomName()
			if !ok {
				return nil, &ParseError{Offset: pos, Msg: "malformed custom section name"}
			}
			if !utf8.ValidString(name) {
				return nil, &ParseError{Offset: pos, Msg: "custom section name is not valid UTF-8"}
			}
		}

		sections = append(sections, section)
		pos += int(size)
	}

	return sections, nil
}

// Builder assembles a module section by section. The first error is
// sticky; later appends are ignored and Finish reports it.
type Builder struct {
	buf bytes.Buffer
	err error
}

// NewBuilder returns a Builder holding only the module header.
func NewBuilder() *Builder {
	b := &Builder{}
	b.buf.Write(magic)
	b.buf.Write(version)
	return b
}

// Custom appends a custom section.
func (b *Builder) Custom(name string, content []byte) {
	if uint64(len(name))+uint64(len(content))+5 > math.MaxUint32 {
		b.fail(fmt.Errorf("custom section %q: %w", name, ErrSectionTooLarge))
		return
	}
	b.Raw(Custom(name, content))
}

// Raw appends a section unchanged.
func (b *Builder) Raw(s Section) {
	if b.err != nil {
		return
	}
	if uint64(len(s.Data)) > math.MaxUint32 {
		b.fail(fmt.Errorf("section %d: %w", s.ID, ErrSectionTooLarge))
		return
	}

	var head [6]byte
	frame := append(head[:0], s.ID)
	frame = AppendULEB128(frame, uint32(len(s.Data)))
	b.buf.Write(frame)
	b.buf.Write(s.Data)
}

// Len returns the number of bytes assembled so far.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Err returns the first error encountered, if any.
func (b *Builder) Err() error {
	return b.err
}

// Finish returns the assembled module.
func (b *Builder) Finish() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.buf.Bytes(), nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Join assembles a module from sections.
func Join(sections []Section) ([]byte, error) {
	b := NewBuilder()
	for _, s := range sections {
		b.Raw(s)
	}
	return b.Finish()
}
