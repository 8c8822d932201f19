package mp4

// RawBox wraps an opaque, already-encoded payload under a box header. Used
// for box bodies this package does not parse, such as avcC, whose contents
// are the caller's AVCDecoderConfigurationRecord written verbatim.
type RawBox struct {
	BoxName BoxType
	Data    []byte
}

// Type returns the BoxType.
func (b *RawBox) Type() BoxType {
	return b.BoxName
}

// Size returns the marshaled size in bytes.
func (b *RawBox) Size() int {
	return len(b.Data)
}

// Marshal box to buffer.
func (b *RawBox) Marshal(buf []byte, pos *int) {
	Write(buf, pos, b.Data)
}
