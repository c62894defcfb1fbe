package capvm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned by Decode for programs that do not follow the
// instruction framing.
var ErrMalformed = errors.New("capvm: malformed program")

// Instruction is one decoded instruction.
type Instruction struct {
	// Offset is the byte offset of the opcode word.
	Offset int
	Op     Op
	Args   []uint32

	// Slot is the slot the instruction produces, zero for skip.
	Slot Slot

	// Literal holds the text of string instructions.
	Literal string
}

// Decode splits program into instructions. The instruction stream ends
// where the first string literal begins.
func Decode(program []byte) ([]Instruction, error) {
	if len(program)%WordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words", ErrMalformed, len(program))
	}

	word := func(pos int) uint32 {
		return binary.LittleEndian.Uint32(program[pos:])
	}

	var (
		out  []Instruction
		next = Slot(SlotBase)
		end  = len(program)
	)

	for pos := 0; pos < end; {
		if pos+2*WordSize > end {
			return nil, fmt.Errorf("%w: truncated instruction at byte %d", ErrMalformed, pos)
		}

		inst := Instruction{Offset: pos, Op: Op(word(pos))}
		argc := int(word(pos + WordSize))
		pos += 2 * WordSize

		if argc > (end-pos)/WordSize {
			return nil, fmt.Errorf("%w: %s at byte %d has %d operands past the end", ErrMalformed, inst.Op, inst.Offset, argc)
		}
		for range argc {
			inst.Args = append(inst.Args, word(pos))
			pos += WordSize
		}

		if err := checkArity(inst); err != nil {
			return nil, err
		}

		if inst.Op == OpString {
			offset, length := int(inst.Args[0]), int(inst.Args[1])
			if offset < pos || length > len(program)-offset {
				return nil, fmt.Errorf("%w: string at byte %d points outside the literal blob", ErrMalformed, inst.Offset)
			}
			inst.Literal = string(program[offset : offset+length])
			end = min(end, offset-offset%WordSize)
		}

		if inst.Op != OpSkip {
			inst.Slot = next
			next++
		}
		out = append(out, inst)
	}

	return out, nil
}

func checkArity(inst Instruction) error {
	want := -1
	switch inst.Op {
	case OpSkip, OpSection, OpUnzip:
		want = 1
	case OpString:
		want = 2
	case OpSet:
		want = 3
	}
	if want >= 0 && len(inst.Args) != want {
		return fmt.Errorf("%w: %s at byte %d takes %d operands, got %d",
			ErrMalformed, inst.Op, inst.Offset, want, len(inst.Args))
	}
	return nil
}

// Disassemble renders program as one instruction per line.
func Disassemble(program []byte) (string, error) {
	insts, err := Decode(program)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&sb, "%04x  ", inst.Offset)
		if inst.Slot != 0 {
			fmt.Fprintf(&sb, "$%-3d = ", inst.Slot)
		} else {
			sb.WriteString("       ")
		}
		sb.WriteString(inst.Op.String())

		if inst.Op == OpString {
			sb.WriteString(" " + strconv.Quote(inst.Literal))
		} else {
			for _, arg := range inst.Args {
				fmt.Fprintf(&sb, " %d", arg)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
