package customformat

import "encoding/binary"

// FlagRandomAccessPresent marks a sample as a random-access (IDR) sample.
const FlagRandomAccessPresent = uint8(0x80)

// SampleSize is the marshaled size of a Sample record in bytes.
const SampleSize = 25

// Sample is one entry in a .meta sample index.
type Sample struct {
	RandomAccessPresent bool

	PTS       int64 // 90kHz, absolute.
	DTSOffset int32 // 90kHz, signed; dts = pts - dtsOffset.
	Duration  uint32

	DataOffset uint32 // Into .mdat.
	DataSize   uint32
}

// Marshal sample.
func (s Sample) Marshal() []byte {
	out := make([]byte, SampleSize)

	var flags uint8
	if s.RandomAccessPresent {
		flags |= FlagRandomAccessPresent
	}

	out[0] = flags
	binary.BigEndian.PutUint64(out[1:9], uint64(s.PTS))
	binary.BigEndian.PutUint32(out[9:13], uint32(s.DTSOffset))
	binary.BigEndian.PutUint32(out[13:17], s.Duration)
	binary.BigEndian.PutUint32(out[17:21], s.DataOffset)
	binary.BigEndian.PutUint32(out[21:25], s.DataSize)
	return out
}

// Unmarshal sample.
func (s *Sample) Unmarshal(buf []byte) {
	flags := buf[0]
	s.RandomAccessPresent = flags&FlagRandomAccessPresent != 0

	s.PTS = int64(binary.BigEndian.Uint64(buf[1:9]))
	s.DTSOffset = int32(binary.BigEndian.Uint32(buf[9:13]))
	s.Duration = binary.BigEndian.Uint32(buf[13:17])
	s.DataOffset = binary.BigEndian.Uint32(buf[17:21])
	s.DataSize = binary.BigEndian.Uint32(buf[21:25])
}

// DTS returns the sample's decode time, pts - dtsOffset.
func (s Sample) DTS() int64 {
	return s.PTS - int64(s.DTSOffset)
}
