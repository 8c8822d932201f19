package customformat

import (
	"fmt"
	"io"
)

// Reader reads a single .meta file.
type Reader struct {
	in io.ReadSeeker

	headerSize  int
	fileSize    int
	sampleCount int
}

// NewReader creates a new Reader, reading and validating the header.
func NewReader(in io.ReadSeeker, fileSize int) (*Reader, *Header, error) {
	var header Header
	headerSize, err := header.Unmarshal(in)
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal header: %w", err)
	}

	r := Reader{
		in:          in,
		headerSize:  headerSize,
		fileSize:    fileSize,
		sampleCount: (fileSize - headerSize) / SampleSize,
	}

	return &r, &header, nil
}

// SampleCount returns the number of complete sample records in the file.
func (r *Reader) SampleCount() int {
	return r.sampleCount
}

// ReadAllSamples reads and returns every sample record in the file.
//
// A truncated final record (a crash mid-write) is not an error: the file
// is treated as ending at the last complete record.
func (r *Reader) ReadAllSamples() ([]Sample, error) {
	if _, err := r.in.Seek(int64(r.headerSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to samples: %w", err)
	}

	buf := make([]byte, SampleSize)
	samples := make([]Sample, 0, r.sampleCount)
	for i := 0; i < r.sampleCount; i++ {
		if _, err := io.ReadFull(r.in, buf); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read sample %d: %w", i, err)
		}
		var s Sample
		s.Unmarshal(buf)
		samples = append(samples, s)
	}

	return samples, nil
}
