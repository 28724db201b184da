package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMagic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		magic []byte
		want  Endianness
	}{
		{"big", []byte{0x45, 0x01, 0x76, 0x29, 0x3F, 0x8C, 0xCC, 0xCD, 0, 0, 0, 0}, BigEndian},
		{"little", []byte{0x29, 0x76, 0x01, 0x45, 0xCD, 0xCC, 0x8C, 0x3F, 0, 0, 0, 0}, LittleEndian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveMagic(tt.magic)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.magic, got.Magic())
		})
	}
}

func TestResolveMagicUnknown(t *testing.T) {
	t.Parallel()

	magic := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := ResolveMagic(magic)
	require.ErrorIs(t, err, ErrUnknownMagic)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindUnknownMagic, fe.Kind)
	assert.Equal(t, int64(0), fe.Offset)
	assert.Equal(t, magic, fe.Magic)
	assert.Contains(t, err.Error(), "deadbeef")
}

func TestParseEndianness(t *testing.T) {
	t.Parallel()

	for _, e := range []Endianness{LittleEndian, BigEndian} {
		got, err := ParseEndianness(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEndianness("middle")
	assert.Error(t, err)
}

func TestHeaderLayout(t *testing.T) {
	t.Parallel()

	h := Header{Endianness: BigEndian, StringTableSize: 0x0102, TreeSize: 0x030405}
	b := h.Bytes()
	require.Len(t, b, HeaderSize)
	assert.Equal(t, 60, HeaderSize)
	assert.Equal(t, BigEndian.Magic(), b[:MagicSize])
	assert.Equal(t, []byte{0, 0, 1, 2}, b[12:16])
	assert.Equal(t, []byte{0, 3, 4, 5}, b[16:20])
	assert.Equal(t, make([]byte, 40), b[20:])

	got, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	little := Header{Endianness: LittleEndian, StringTableSize: 0x0102, TreeSize: 7}.Bytes()
	assert.Equal(t, []byte{2, 1, 0, 0}, little[12:16])
	assert.Equal(t, []byte{7, 0, 0, 0}, little[16:20])
}

func TestDecodeHeaderTruncated(t *testing.T) {
	t.Parallel()

	_, err := DecodeHeader(LittleEndian.Magic()[:5])
	assert.ErrorIs(t, err, ErrTruncatedStream)

	_, err = DecodeHeader(append(LittleEndian.Magic(), 1, 2, 3))
	assert.ErrorIs(t, err, ErrTruncatedStream)
}
