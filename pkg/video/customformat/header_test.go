package customformat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderMarshalUnmarshal(t *testing.T) {
	header := Header{
		StartTime: 3,
		Width:     64,
		Height:    64,
		ExtraData: []byte{1, 2, 3, 4},
	}

	marshaled := header.Marshal()
	require.Equal(t, header.Size(), len(marshaled))

	var got Header
	n, err := got.Unmarshal(bytes.NewReader(marshaled))
	require.NoError(t, err)
	require.Equal(t, len(marshaled), n)
	require.Equal(t, header, got)
}

func TestHeaderUnsupportedVersion(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[0] = 0x00

	var h Header
	_, err := h.Unmarshal(bytes.NewReader(buf))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}
