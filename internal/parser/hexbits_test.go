package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bits(s string) []bool {
	out := make([]bool, len(s))
	for i := range s {
		out[i] = s[i] == '1'
	}
	return out
}

func TestEncodeBits(t *testing.T) {
	tests := []struct {
		name string
		in   []bool
		want string
	}{
		{"empty", nil, ""},
		{"lsb first", bits("1000"), "1"},
		{"msb of nibble", bits("0001"), "8"},
		{"all ones", bits("11111111"), "ff"},
		{"two nibbles", bits("01001101"), "2b"},
		{"padded at the end", bits("11"), "3"},
		{"padded second nibble", bits("000011"), "03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeBits(tt.in))
		})
	}
}

func TestDecodeHex(t *testing.T) {
	assert.Equal(t, bits("1000"), DecodeHex("1"))
	assert.Equal(t, bits("01001101"), DecodeHex("2b"))
	assert.Equal(t, bits("01001101"), DecodeHex("2B"))
	assert.Empty(t, DecodeHex(""))
	assert.Equal(t, bits("0000"), DecodeHex("z"), "non-hex digits decode as zero")
}

func TestBitCodecRoundTrip(t *testing.T) {
	t.Run("whole nibbles are exact", func(t *testing.T) {
		in := bits("1011001110001111")
		assert.Equal(t, in, DecodeHex(EncodeBits(in)))
	})

	t.Run("partial nibble comes back zero padded", func(t *testing.T) {
		in := bits("1011001")
		out := DecodeHex(EncodeBits(in))
		assert.Len(t, out, 8)
		assert.Equal(t, in, out[:len(in)])
		assert.False(t, out[7])
	})

	t.Run("every length up to three bytes", func(t *testing.T) {
		for n := 0; n <= 24; n++ {
			in := make([]bool, n)
			for i := range in {
				in[i] = (i*7+n)%3 == 0
			}
			out := DecodeHex(EncodeBits(in))
			padded := (n + 3) / 4 * 4
			assert.Len(t, out, padded)
			assert.Equal(t, in, out[:n])
			for _, b := range out[n:] {
				assert.False(t, b)
			}
		}
	})
}
