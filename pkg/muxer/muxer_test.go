package muxer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"camkeep/pkg/recid"
	"camkeep/pkg/video/mp4"
)

func waitUntilWaiting(t *testing.T, m *Muxer) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		m.mu.Lock()
		n := len(m.framesOnHold)
		m.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for play() to register as a waiter")
}

func testParams() mp4.TrackParams {
	return mp4.TrackParams{Width: 64, Height: 64, Codec: "test"}
}

func TestSegmenterBasic(t *testing.T) {
	m, err := New(1, testParams(), 3, Frame{
		PTS:                 5,
		RandomAccessPresent: true,
		AVCC:                []byte("abcd"),
	})
	require.NoError(t, err)

	m.WriteFrame(Frame{PTS: 6, RandomAccessPresent: true, AVCC: []byte("efgh")})
	m.WriteFrame(Frame{PTS: 7, RandomAccessPresent: true, AVCC: []byte("ijkl")})

	seg1, err := m.NextSegment(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, seg1)
	require.Len(t, seg1.Frames, 1)
	require.Equal(t, recid.H264Time(3), seg1.Frames[0].PTS)
	require.Equal(t, int32(0), seg1.Frames[0].DTSOffset)
	require.Equal(t, uint32(3), seg1.Frames[0].Duration)
	require.True(t, seg1.Frames[0].RandomAccessPresent)
	require.Equal(t, []byte("abcd"), seg1.Frames[0].AVCC)

	seg2, err := m.NextSegment(context.Background(), seg1)
	require.NoError(t, err)
	require.NotNil(t, seg2)
	require.Len(t, seg2.Frames, 1)
	require.Equal(t, recid.H264Time(6), seg2.Frames[0].PTS)
	require.Equal(t, uint32(1), seg2.Frames[0].Duration)
	require.True(t, seg2.Frames[0].RandomAccessPresent)
	require.Equal(t, []byte("efgh"), seg2.Frames[0].AVCC)
}

var expectedFtyp = []byte{
	0x00, 0x00, 0x00, 0x20, 0x66, 0x74, 0x79, 0x70, 0x6d, 0x70, 0x34, 0x32, 0x00, 0x00, 0x00, 0x01,
	0x6d, 0x70, 0x34, 0x31, 0x6d, 0x70, 0x34, 0x32, 0x69, 0x73, 0x6f, 0x6d, 0x68, 0x6c, 0x73, 0x66,
}

func TestStartSessionOrdering(t *testing.T) {
	m, err := New(1, testParams(), 3, Frame{
		PTS:                 5,
		RandomAccessPresent: true,
		AVCC:                []byte("abcd"),
	})
	require.NoError(t, err)

	m.WriteFrame(Frame{PTS: 6, RandomAccessPresent: true, AVCC: []byte("efgh")})

	start, err := m.StartSession(123)
	require.NoError(t, err)
	require.Equal(t, StartReady, start.Status)
	require.Equal(t, "test", start.Codecs)

	wantStartNanos, err := recid.H264Time(3).ToUnixNano()
	require.NoError(t, err)
	require.Equal(t, wantStartNanos, start.StartTime)

	resp, err := m.Play(context.Background(), 123)
	require.NoError(t, err)
	require.Equal(t, PlayReady, resp.Status)
	require.GreaterOrEqual(t, len(resp.Data), len(expectedFtyp))
	require.Equal(t, expectedFtyp, resp.Data[:len(expectedFtyp)])

	// Init prefix, then exactly one moof+mdat for the one buffered frame.
	require.Equal(t, 1, bytes.Count(resp.Data, []byte("moof")))
	require.True(t, bytes.HasSuffix(resp.Data, []byte("abcd")))
}

func TestStartSessionNotReady(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)

	start, err := m.StartSession(1)
	require.NoError(t, err)
	require.Equal(t, StartNotReady, start.Status)
}

func TestStartSessionAlreadyExists(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	_, err = m.StartSession(1)
	require.NoError(t, err)
	res, err := m.StartSession(1)
	require.NoError(t, err)
	require.Equal(t, StartAlreadyExists, res.Status)
}

func TestPlaySessionNotExist(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)

	res, err := m.Play(context.Background(), 999)
	require.NoError(t, err)
	require.Equal(t, PlaySessionNotExist, res.Status)
}

func TestPlayWaitsForNextFrame(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	start, err := m.StartSession(7)
	require.NoError(t, err)
	require.Equal(t, StartReady, start.Status)

	first, err := m.Play(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, PlayReady, first.Status)

	done := make(chan PlayResult, 1)
	go func() {
		res, err := m.Play(context.Background(), 7)
		require.NoError(t, err)
		done <- res
	}()
	waitUntilWaiting(t, m)

	m.WriteFrame(Frame{PTS: 2, RandomAccessPresent: true, AVCC: []byte("c")})

	res := <-done
	require.Equal(t, PlayReady, res.Status)
	require.NotEmpty(t, res.Data)
}

func TestPlayCancelled(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	_, err = m.StartSession(7)
	require.NoError(t, err)
	_, err = m.Play(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Play(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, PlayCancelled, res.Status)
}

func TestPlayFramesExpired(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	start, err := m.StartSession(5)
	require.NoError(t, err)
	require.Equal(t, StartReady, start.Status)

	// Roll the session's anchor frame out of the 256-frame ring.
	for i := 2; i < FrameCacheSize+10; i++ {
		m.WriteFrame(Frame{PTS: recid.H264Time(i), RandomAccessPresent: true, AVCC: []byte("x")})
	}

	res, err := m.Play(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, PlayFramesExpired, res.Status)

	// A fresh session is unaffected.
	start2, err := m.StartSession(6)
	require.NoError(t, err)
	require.Equal(t, StartReady, start2.Status)
	res2, err := m.Play(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, PlayReady, res2.Status)
}

func TestStartSessionEvictsOldestPastMaxSessions(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	for i := 0; i <= MaxSessions; i++ {
		res, err := m.StartSession(uint32(i))
		require.NoError(t, err)
		require.Equal(t, StartReady, res.Status)
	}

	res, err := m.Play(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, PlaySessionNotExist, res.Status)
}

func TestNextSegmentForeignMuxerTreatedAsNone(t *testing.T) {
	m1, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m1.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	m2, err := New(2, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)
	m2.WriteFrame(Frame{PTS: 1, RandomAccessPresent: true, AVCC: []byte("b")})

	foreignSeg, err := m1.NextSegment(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, foreignSeg)

	seg, err := m2.NextSegment(context.Background(), foreignSeg)
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.Equal(t, uint64(1), seg.ID)
}

func TestNextSegmentCancelled(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seg, err := m.NextSegment(ctx, nil)
	require.NoError(t, err)
	require.Nil(t, seg)
}

func TestNewMuxerRejectsNonIdrFirstFrame(t *testing.T) {
	_, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: false})
	require.ErrorIs(t, err, ErrNotIdr)
}

func TestNewMuxerRejectsNonZeroDtsOffset(t *testing.T) {
	_, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, DTSOffset: 5})
	require.ErrorIs(t, err, ErrDtsNotZero)
}

func TestGOPCacheEviction(t *testing.T) {
	m, err := New(1, testParams(), 0, Frame{PTS: 0, RandomAccessPresent: true, AVCC: []byte("a")})
	require.NoError(t, err)

	for i := 1; i <= MaxGOPs+2; i++ {
		m.WriteFrame(Frame{PTS: recid.H264Time(i), RandomAccessPresent: true, AVCC: []byte("x")})
	}

	require.LessOrEqual(t, len(m.gops), MaxGOPs)
}
