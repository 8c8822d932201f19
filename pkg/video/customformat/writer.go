package customformat

import (
	"fmt"
	"io"
)

// Writer writes a recording in the custom format.
type Writer struct {
	meta io.Writer // .meta output.
	mdat io.Writer // .mdat output.

	mdatPos uint32
}

// NewWriter creates a new Writer and writes the header.
func NewWriter(meta, mdat io.Writer, header Header) (*Writer, error) {
	w := &Writer{
		meta: meta,
		mdat: mdat,
	}

	if _, err := meta.Write(header.Marshal()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	return w, nil
}

// WriteSample appends one sample record to .meta and its payload to .mdat.
// DataOffset and DataSize are computed from the writer's running position;
// any values already set on s are overwritten.
func (w *Writer) WriteSample(s Sample, data []byte) error {
	s.DataOffset = w.mdatPos
	s.DataSize = uint32(len(data))

	n, err := w.mdat.Write(data)
	if err != nil {
		return fmt.Errorf("write mdat: %w", err)
	}
	w.mdatPos += uint32(n)

	if _, err := w.meta.Write(s.Marshal()); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}

	return nil
}
