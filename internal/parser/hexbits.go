package parser

import "strings"

const hexDigits = "0123456789abcdef"

// EncodeBits packs a bit sequence into hex text for storage in an attribute.
// The sequence is padded with zero bits at the end to a multiple of four,
// then each group of four becomes one hex digit, least significant bit first.
func EncodeBits(bits []bool) string {
	n := len(bits)
	padded := (n + 3) / 4 * 4

	var sb strings.Builder
	sb.Grow(padded / 4)
	for i := 0; i < padded; i += 4 {
		v := 0
		for j := 0; j < 4; j++ {
			if i+j < n && bits[i+j] {
				v |= 1 << j
			}
		}
		sb.WriteByte(hexDigits[v])
	}
	return sb.String()
}

// DecodeHex expands hex text into bits, four per character, least
// significant bit first. Characters that are not hex digits decode as zero.
//
// The result always has 4*len(text) bits, so decoding what EncodeBits
// produced returns the original bits followed by any padding. Callers that
// need the exact length must keep it themselves.
func DecodeHex(text string) []bool {
	bits := make([]bool, 4*len(text))
	for i := 0; i < len(text); i++ {
		v := hexValue(text[i])
		for j := 0; j < 4; j++ {
			bits[4*i+j] = v&(1<<j) != 0
		}
	}
	return bits
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}
