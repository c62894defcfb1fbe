// Package wasmsecttest hand-assembles small WebAssembly modules for tests.
package wasmsecttest

import (
	"github.com/yaklabco/wahpolyglot/pkg/wasmsect"
)

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
)

// Section ids.
const (
	SecType     byte = 1
	SecImport   byte = 2
	SecFunction byte = 3
	SecMemory   byte = 5
	SecExport   byte = 7
	SecCode     byte = 10
	SecData     byte = 11
)

// Instructions used by test bodies.
const (
	OpCall      byte = 0x10
	OpDrop      byte = 0x1a
	OpLocalGet  byte = 0x20
	OpLocalSet  byte = 0x21
	OpI32Const  byte = 0x41
	OpI32Add    byte = 0x6a
	OpEnd       byte = 0x0b
	extFunc     byte = 0x00
	extMemory   byte = 0x02
	funcTypeTag byte = 0x60
)

// Import is an imported function.
type Import struct {
	Module  string
	Name    string
	Params  []byte
	Results []byte
}

// Func is a defined function. Body holds the instructions without the
// trailing end opcode.
type Func struct {
	Export  string
	Params  []byte
	Results []byte
	Locals  []byte
	Body    []byte
}

// Data is an active data segment in memory 0.
type Data struct {
	Offset int32
	Bytes  []byte
}

// Module describes a module to assemble.
type Module struct {
	Imports []Import
	Funcs   []Func

	// MemoryPages declares memory 0 when non-zero.
	MemoryPages  uint32
	ExportMemory string

	Data []Data

	// Custom sections are appended after all other sections.
	Custom []wasmsect.Section
}

// Encode assembles the module.
func (m Module) Encode() []byte {
	var (
		types     [][2][]byte
		importIdx []uint32
		funcIdx   []uint32
	)

	typeOf := func(params, results []byte) uint32 {
		for idx, existing := range types {
			if string(existing[0]) == string(params) && string(existing[1]) == string(results) {
				return uint32(idx)
			}
		}
		types = append(types, [2][]byte{params, results})
		return uint32(len(types) - 1)
	}

	for _, imp := range m.Imports {
		importIdx = append(importIdx, typeOf(imp.Params, imp.Results))
	}
	for _, fn := range m.Funcs {
		funcIdx = append(funcIdx, typeOf(fn.Params, fn.Results))
	}

	b := wasmsect.NewBuilder()

	if len(types) > 0 {
		payload := vec(len(types))
		for _, sig := range types {
			payload = append(payload, funcTypeTag)
			payload = append(vecAppend(payload, len(sig[0])), sig[0]...)
			payload = append(vecAppend(payload, len(sig[1])), sig[1]...)
		}
		b.Raw(wasmsect.Section{ID: SecType, Data: payload})
	}

	if len(m.Imports) > 0 {
		payload := vec(len(m.Imports))
		for idx, imp := range m.Imports {
			payload = appendName(payload, imp.Module)
			payload = appendName(payload, imp.Name)
			payload = append(payload, extFunc)
			payload = wasmsect.AppendULEB128(payload, importIdx[idx])
		}
		b.Raw(wasmsect.Section{ID: SecImport, Data: payload})
	}

	if len(m.Funcs) > 0 {
		payload := vec(len(m.Funcs))
		for _, idx := range funcIdx {
			payload = wasmsect.AppendULEB128(payload, idx)
		}
		b.Raw(wasmsect.Section{ID: SecFunction, Data: payload})
	}

	if m.MemoryPages > 0 {
		payload := vec(1)
		payload = append(payload, 0x00)
		payload = wasmsect.AppendULEB128(payload, m.MemoryPages)
		b.Raw(wasmsect.Section{ID: SecMemory, Data: payload})
	}

	exports := 0
	for _, fn := range m.Funcs {
		if fn.Export != "" {
			exports++
		}
	}
	if m.ExportMemory != "" {
		exports++
	}
	if exports > 0 {
		payload := vec(exports)
		for idx, fn := range m.Funcs {
			if fn.Export == "" {
				continue
			}
			payload = appendName(payload, fn.Export)
			payload = append(payload, extFunc)
			payload = wasmsect.AppendULEB128(payload, uint32(len(m.Imports)+idx))
		}
		if m.ExportMemory != "" {
			payload = appendName(payload, m.ExportMemory)
			payload = append(payload, extMemory, 0x00)
		}
		b.Raw(wasmsect.Section{ID: SecExport, Data: payload})
	}

	if len(m.Funcs) > 0 {
		payload := vec(len(m.Funcs))
		for _, fn := range m.Funcs {
			var body []byte
			if len(fn.Locals) == 0 {
				body = vec(0)
			} else {
				body = vec(len(fn.Locals))
				for _, local := range fn.Locals {
					body = append(body, 0x01, local)
				}
			}
			body = append(body, fn.Body...)
			body = append(body, OpEnd)

			payload = vecAppend(payload, len(body))
			payload = append(payload, body...)
		}
		b.Raw(wasmsect.Section{ID: SecCode, Data: payload})
	}

	if len(m.Data) > 0 {
		payload := vec(len(m.Data))
		for _, seg := range m.Data {
			payload = append(payload, 0x00, OpI32Const)
			payload = AppendSLEB128(payload, seg.Offset)
			payload = append(payload, OpEnd)
			payload = vecAppend(payload, len(seg.Bytes))
			payload = append(payload, seg.Bytes...)
		}
		b.Raw(wasmsect.Section{ID: SecData, Data: payload})
	}

	for _, custom := range m.Custom {
		b.Raw(custom)
	}

	out, err := b.Finish()
	if err != nil {
		panic(err)
	}
	return out
}

// I32Const encodes an i32.const instruction.
func I32Const(v int32) []byte {
	return AppendSLEB128([]byte{OpI32Const}, v)
}

// Call encodes a call instruction.
func Call(funcIndex uint32) []byte {
	return wasmsect.AppendULEB128([]byte{OpCall}, funcIndex)
}

// LocalGet encodes a local.get instruction.
func LocalGet(idx uint32) []byte {
	return wasmsect.AppendULEB128([]byte{OpLocalGet}, idx)
}

// LocalSet encodes a local.set instruction.
func LocalSet(idx uint32) []byte {
	return wasmsect.AppendULEB128([]byte{OpLocalSet}, idx)
}

// Seq concatenates instruction encodings.
func Seq(parts ...[]byte) []byte {
	var out []byte
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// AppendSLEB128 appends v in signed LEB128 form.
func AppendSLEB128(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func vec(n int) []byte {
	return wasmsect.AppendULEB128(nil, uint32(n))
}

func vecAppend(dst []byte, n int) []byte {
	return wasmsect.AppendULEB128(dst, uint32(n))
}

func appendName(dst []byte, name string) []byte {
	dst = vecAppend(dst, len(name))
	return append(dst, name...)
}
