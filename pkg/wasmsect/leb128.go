package wasmsect

import "errors"

var (
	errLEBTruncated = errors.New("truncated LEB128 value")
	errLEBOverflow  = errors.New("LEB128 value overflows 32 bits")
)

// AppendULEB128 appends v to dst in unsigned LEB128 form.
func AppendULEB128(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// ReadULEB128 decodes an unsigned 32-bit LEB128 value from the start of
// data and returns it with the number of bytes consumed.
func ReadULEB128(data []byte) (uint32, int, error) {
	var result uint32
	var shift uint

	for idx, b := range data {
		if idx == 4 && b > 0x0f {
			return 0, idx + 1, errLEBOverflow
		}

		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, idx + 1, nil
		}

		shift += 7
	}

	return 0, len(data), errLEBTruncated
}
