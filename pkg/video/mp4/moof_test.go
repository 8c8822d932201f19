package mp4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateMoofDataOffset(t *testing.T) {
	frames := []Frame{
		{PTS: 5 * 90_000, Duration: 3 * 90_000, RandomAccessPresent: true, AVCC: []byte("abcd")},
	}

	out, err := GenerateMoof(3*90_000, frames)
	require.NoError(t, err)

	// moof box size is the big-endian uint32 at offset 0, minus the trailing
	// 8-byte mdat header we also generated.
	size := int(out[0])<<24 | int(out[1])<<16 | int(out[2])<<8 | int(out[3])
	require.Equal(t, len(out)-8, size)
	require.Equal(t, "mdat", string(out[len(out)-4:]))
}

func TestGenerateMoofRejectsEmpty(t *testing.T) {
	_, err := GenerateMoof(0, nil)
	require.Error(t, err)
}

func TestGenerateMoofRejectsNegativeBaseTime(t *testing.T) {
	frames := []Frame{{PTS: 1, RandomAccessPresent: true}}
	_, err := GenerateMoof(100, frames)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}
