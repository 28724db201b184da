package scene

// HeaderSize is the fixed size of the scene header: magic, string table
// size, tree size and a zero-filled reserved region.
const HeaderSize = MagicSize + 4 + 4 + reservedSize

const reservedSize = 40

// Header is the fixed prologue of a scene file.
type Header struct {
	Endianness      Endianness
	StringTableSize uint32
	TreeSize        uint32
}

// DecodeHeader parses the header at the start of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < MagicSize {
		return Header{}, formatErr(KindTruncatedStream, len(data), "header needs %d bytes", HeaderSize)
	}
	e, err := ResolveMagic(data[:MagicSize])
	if err != nil {
		return Header{}, err
	}
	if len(data) < HeaderSize {
		return Header{}, formatErr(KindTruncatedStream, len(data), "header needs %d bytes", HeaderSize)
	}
	order := e.ByteOrder()
	return Header{
		Endianness:      e,
		StringTableSize: order.Uint32(data[MagicSize:]),
		TreeSize:        order.Uint32(data[MagicSize+4:]),
	}, nil
}

// Bytes returns the encoded header.
func (h Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// AppendTo appends the encoded header to b.
func (h Header) AppendTo(b []byte) []byte {
	order := h.Endianness.ByteOrder()
	b = append(b, h.Endianness.Magic()...)
	b = order.AppendUint32(b, h.StringTableSize)
	b = order.AppendUint32(b, h.TreeSize)
	return append(b, make([]byte, reservedSize)...)
}

// bodyEnd returns the offset one past the tree, i.e. where trailing data starts.
func (h Header) bodyEnd() int64 {
	return HeaderSize + int64(h.StringTableSize) + int64(h.TreeSize)
}
