// Package capvm builds programs for the capability interpreter that sets up
// the WASI environment of a booted module.
//
// A program is a sequence of little-endian 32-bit words followed by a blob
// of string literals, padded to a multiple of four bytes. Each instruction
// is an opcode word, an operand count and that many operand words. Every
// instruction except skip produces a value in the next free slot; slots
// below SlotBase are reserved by the interpreter. String operands are byte
// offsets and lengths relative to the start of the program.
package capvm

import (
	"encoding/binary"
	"fmt"

	"github.com/yaklabco/wahpolyglot/pkg/config"
)

// Op is an instruction opcode.
type Op uint32

// Opcodes understood by the interpreter.
const (
	OpSkip    Op = 1
	OpString  Op = 2
	OpSet     Op = 7
	OpUnzip   Op = 12
	OpSection Op = 13
)

// SlotBase is the first slot available to programs.
const SlotBase uint32 = 14

// WordSize is the size of one instruction word.
const WordSize = 4

// DirKey is the configuration key bound to the unpacked archive.
const DirKey = "dir"

// TrailingSection is the custom section the boot program unpacks.
const TrailingSection = config.DefaultTrailingZipSection

// String implements fmt.Stringer.
func (o Op) String() string {
	switch o {
	case OpSkip:
		return "skip"
	case OpString:
		return "string"
	case OpSet:
		return "set"
	case OpUnzip:
		return "unzip"
	case OpSection:
		return "section"
	default:
		return fmt.Sprintf("op(%d)", uint32(o))
	}
}

// Slot addresses a value produced by an earlier instruction.
type Slot uint32

// Builder assembles a program. String literals are laid out in the blob in
// the order they are pushed.
type Builder struct {
	words   []uint32
	blob    []byte
	strings []stringRef
	next    Slot
}

type stringRef struct {
	word   int
	offset int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{next: Slot(SlotBase)}
}

func (b *Builder) emit(op Op, args ...uint32) {
	b.words = append(b.words, uint32(op), uint32(len(args)))
	b.words = append(b.words, args...)
}

func (b *Builder) produce() Slot {
	slot := b.next
	b.next++
	return slot
}

// String pushes a string literal.
func (b *Builder) String(s string) Slot {
	b.strings = append(b.strings, stringRef{word: len(b.words) + 2, offset: len(b.blob)})
	b.emit(OpString, 0, uint32(len(s)))
	b.blob = append(b.blob, s...)
	return b.produce()
}

// Section fetches the custom section whose name is in slot name.
func (b *Builder) Section(name Slot) Slot {
	b.emit(OpSection, uint32(name))
	return b.produce()
}

// Unzip unpacks the archive in slot archive into a directory.
func (b *Builder) Unzip(archive Slot) Slot {
	b.emit(OpUnzip, uint32(archive))
	return b.produce()
}

// Set binds key to value in the table held in slot target.
func (b *Builder) Set(target uint32, key, value Slot) Slot {
	b.emit(OpSet, target, uint32(key), uint32(value))
	return b.produce()
}

// Skip advances the interpreter cursor by n bytes.
func (b *Builder) Skip(n int) {
	b.emit(OpSkip, uint32(n))
}

// Bytes encodes the program.
func (b *Builder) Bytes() []byte {
	code := len(b.words) * WordSize
	for _, ref := range b.strings {
		b.words[ref.word] = uint32(code + ref.offset)
	}

	size := code + len(b.blob)
	size += -size & (WordSize - 1)

	out := make([]byte, 0, size)
	for _, word := range b.words {
		out = binary.LittleEndian.AppendUint32(out, word)
	}
	out = append(out, b.blob...)
	return append(out, make([]byte, size-len(out))...)
}

// Generate builds the boot program: fetch the trailing archive section,
// unzip it and bind the result to "dir". The configuration is read but does
// not influence the program.
func Generate(_ []byte) []byte {
	b := NewBuilder()

	name := b.String(TrailingSection)
	archive := b.Section(name)
	dir := b.Unzip(archive)
	key := b.String(DirKey)
	b.Set(0, key, dir)
	b.Skip(len(TrailingSection))

	return b.Bytes()
}

// Host is the import surface of the configuration module: the length of
// the pending configuration, a copy of it, and a sink for the program.
type Host interface {
	Length() int
	Get(dst []byte)
	Put(program []byte)
}

// Configure reads the configuration from host and hands back the program.
func Configure(host Host) {
	config := make([]byte, host.Length())
	host.Get(config)
	host.Put(Generate(config))
}
