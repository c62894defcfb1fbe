package capvm_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/wahpolyglot/pkg/capvm"
)

func TestGenerate_Layout(t *testing.T) {
	t.Parallel()

	program := capvm.Generate(nil)
	require.Len(t, program, 88+28)
	assert.Zero(t, len(program)%capvm.WordSize)

	words := make([]uint32, 22)
	for idx := range words {
		words[idx] = binary.LittleEndian.Uint32(program[idx*4:])
	}
	assert.Equal(t, []uint32{
		2, 2, 88, 24,
		13, 1, 14,
		12, 1, 15,
		2, 2, 112, 3,
		7, 3, 0, 17, 16,
		1, 1, 24,
	}, words)

	assert.Equal(t, "wah_polyglot_stage2_data", string(program[88:112]))
	assert.Equal(t, "dir", string(program[112:115]))
	assert.Equal(t, byte(0), program[115])
}

func TestGenerate_IgnoresConfig(t *testing.T) {
	t.Parallel()

	assert.Equal(t, capvm.Generate(nil), capvm.Generate([]byte(`{"dir":"/elsewhere"}`)))
}

func TestDecode_Generated(t *testing.T) {
	t.Parallel()

	insts, err := capvm.Decode(capvm.Generate(nil))
	require.NoError(t, err)

	ops := make([]capvm.Op, 0, len(insts))
	for _, inst := range insts {
		ops = append(ops, inst.Op)
	}
	assert.Equal(t, []capvm.Op{
		capvm.OpString, capvm.OpSection, capvm.OpUnzip,
		capvm.OpString, capvm.OpSet, capvm.OpSkip,
	}, ops)

	assert.Equal(t, capvm.TrailingSection, insts[0].Literal)
	assert.Equal(t, capvm.Slot(14), insts[0].Slot)
	assert.Equal(t, capvm.DirKey, insts[3].Literal)
	assert.Equal(t, []uint32{0, 17, 16}, insts[4].Args)
	assert.Zero(t, insts[5].Slot)
}

func TestDisassemble(t *testing.T) {
	t.Parallel()

	text, err := capvm.Disassemble(capvm.Generate(nil))
	require.NoError(t, err)
	assert.Equal(t, ""+
		"0000  $14  = string \"wah_polyglot_stage2_data\"\n"+
		"0010  $15  = section 14\n"+
		"001c  $16  = unzip 15\n"+
		"0028  $17  = string \"dir\"\n"+
		"0038  $18  = set 0 17 16\n"+
		"004c         skip 24\n", text)
}

func TestBuilder_Padding(t *testing.T) {
	t.Parallel()

	b := capvm.NewBuilder()
	b.String("abcd")
	program := b.Bytes()
	assert.Len(t, program, 16+4)

	b = capvm.NewBuilder()
	b.String("a")
	assert.Len(t, b.Bytes(), 16+4)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	words := func(ws ...uint32) []byte {
		var out []byte
		for _, w := range ws {
			out = binary.LittleEndian.AppendUint32(out, w)
		}
		return out
	}

	tests := []struct {
		name    string
		program []byte
	}{
		{name: "partial word", program: []byte{1, 0, 0}},
		{name: "truncated", program: words(1)},
		{name: "operands past end", program: words(1, 3, 0)},
		{name: "wrong arity", program: words(13, 2, 0, 0)},
		{name: "string outside blob", program: words(2, 2, 64, 1)},
		{name: "string overlaps code", program: words(2, 2, 0, 4)},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := capvm.Decode(testCase.program)
			require.ErrorIs(t, err, capvm.ErrMalformed)
		})
	}
}

type recordingHost struct {
	config  []byte
	read    bool
	program []byte
}

func (h *recordingHost) Length() int { return len(h.config) }

func (h *recordingHost) Get(dst []byte) {
	h.read = true
	copy(dst, h.config)
}

func (h *recordingHost) Put(program []byte) { h.program = program }

func TestConfigure(t *testing.T) {
	t.Parallel()

	host := &recordingHost{config: []byte(`{"args":["a"]}`)}
	capvm.Configure(host)

	assert.True(t, host.read)
	assert.Equal(t, capvm.Generate(nil), host.program)
}
