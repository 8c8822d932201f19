package customformat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the only header version this package writes. Version 0 is
// the legacy on-disk format and is rejected on read.
const Version uint8 = 0x01

// HeaderSize is the fixed portion of the meta header, excluding extra data.
const HeaderSize = 15

// Header is the fixed-size prefix of a .meta file.
type Header struct {
	StartTime int64 // H264Time, 90kHz.
	Width     uint16
	Height    uint16
	ExtraData []byte // Opaque AVCDecoderConfigurationRecord.
}

// Size returns the marshaled size in bytes.
func (h *Header) Size() int {
	return HeaderSize + len(h.ExtraData)
}

// Marshal header.
func (h Header) Marshal() []byte {
	out := make([]byte, h.Size())

	out[0] = Version
	binary.BigEndian.PutUint64(out[1:9], uint64(h.StartTime))
	binary.BigEndian.PutUint16(out[9:11], h.Width)
	binary.BigEndian.PutUint16(out[11:13], h.Height)
	binary.BigEndian.PutUint16(out[13:15], uint16(len(h.ExtraData)))
	copy(out[15:], h.ExtraData)

	return out
}

// ErrUnsupportedVersion is returned for a header whose version byte is not
// the version this package writes.
var ErrUnsupportedVersion = errors.New("unsupported version")

// Unmarshal header from reader, returning the number of bytes consumed.
func (h *Header) Unmarshal(r io.Reader) (int, error) {
	fixed := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	version := fixed[0]
	if version != Version {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	h.StartTime = int64(binary.BigEndian.Uint64(fixed[1:9]))
	h.Width = binary.BigEndian.Uint16(fixed[9:11])
	h.Height = binary.BigEndian.Uint16(fixed[11:13])

	extraDataLen := binary.BigEndian.Uint16(fixed[13:15])
	h.ExtraData = make([]byte, extraDataLen)
	if _, err := io.ReadFull(r, h.ExtraData); err != nil {
		return 0, fmt.Errorf("read extra data: %w", err)
	}

	return HeaderSize + int(extraDataLen), nil
}
