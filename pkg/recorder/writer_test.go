package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"camkeep/pkg/muxer"
	"camkeep/pkg/recid"
	"camkeep/pkg/video/customformat"
	"camkeep/pkg/video/mp4"
)

func testParams() mp4.TrackParams {
	return mp4.TrackParams{Width: 64, Height: 64, Codec: "test", ExtraData: []byte{1, 2, 3}}
}

// buildMuxer produces a muxer with three one-frame GOPs ready to be
// pulled by NextSegment, matching the fixture in TestSegmenterBasic.
func buildMuxer(t *testing.T) *muxer.Muxer {
	t.Helper()
	m, err := muxer.New(1, testParams(), 3*recid.H264TimeScale, muxer.Frame{
		PTS:                 5 * recid.H264TimeScale,
		RandomAccessPresent: true,
		AVCC:                []byte("abcd"),
	})
	require.NoError(t, err)
	m.WriteFrame(muxer.Frame{PTS: 6 * recid.H264TimeScale, RandomAccessPresent: true, AVCC: []byte("efgh")})
	m.WriteFrame(muxer.Frame{PTS: 7 * recid.H264TimeScale, RandomAccessPresent: true, AVCC: []byte("ijkl")})
	m.WriteFrame(muxer.Frame{PTS: 8 * recid.H264TimeScale, RandomAccessPresent: true, AVCC: []byte("mnop")})
	return m
}

func TestWriterPersistsSegmentsAndEndMarker(t *testing.T) {
	root := t.TempDir()
	m := buildMuxer(t)

	first, err := m.NextSegment(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	w := New(root, "m1", testParams(), nil)
	result, err := w.Write(context.Background(), first, m.NextSegment, 0)
	require.NoError(t, err)
	require.NotNil(t, result)

	entries, err := os.ReadDir(result.Path)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	require.Contains(t, names, "video_64x64.meta")
	require.Contains(t, names, "video_64x64.mdat")

	var endMarker string
	for _, n := range names {
		if filepath.Ext(n) == ".end" {
			endMarker = n
		}
	}
	require.NotEmpty(t, endMarker, "expected a zero-byte <end_time>.end marker")

	mdat, err := os.ReadFile(filepath.Join(result.Path, "video_64x64.mdat"))
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), mdat)

	metaStat, err := os.Stat(filepath.Join(result.Path, "video_64x64.meta"))
	require.NoError(t, err)
	require.Equal(t, int64(customformat.HeaderSize+len(testParams().ExtraData)+customformat.SampleSize), metaStat.Size())
}

func TestWriterContinuesAcrossSegmentsUntilCancelled(t *testing.T) {
	root := t.TempDir()
	m := buildMuxer(t)

	first, err := m.NextSegment(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	nextSegment := func(ctx context.Context, prev *muxer.Segment) (*muxer.Segment, error) {
		seg, err := m.NextSegment(ctx, prev)
		if seg != nil && seg.ID == 3 {
			cancel()
		}
		return seg, err
	}

	w := New(root, "m1", testParams(), nil)
	result, err := w.Write(ctx, first, nextSegment, time.Hour)
	require.NoError(t, err)

	mdat, err := os.ReadFile(filepath.Join(result.Path, "video_64x64.mdat"))
	require.NoError(t, err)
	require.Equal(t, []byte("abcdefghijkl"), mdat)
	require.Equal(t, uint64(3), result.LastSegment.ID)
}

func TestWriterAbortsOnSkippedSegment(t *testing.T) {
	root := t.TempDir()
	m := buildMuxer(t)

	first, err := m.NextSegment(context.Background(), nil)
	require.NoError(t, err)
	second, err := m.NextSegment(context.Background(), first)
	require.NoError(t, err)
	third, err := m.NextSegment(context.Background(), second)
	require.NoError(t, err)

	nextSegment := func(ctx context.Context, prev *muxer.Segment) (*muxer.Segment, error) {
		return third, nil // Skips segment 2.
	}

	w := New(root, "m1", testParams(), nil)
	_, err = w.Write(context.Background(), first, nextSegment, time.Hour)
	require.ErrorIs(t, err, ErrSkippedSegment)
}
