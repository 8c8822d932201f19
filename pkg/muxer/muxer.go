// Package muxer implements the live fMP4 segmenter: a per-camera state
// machine that turns an ordered H264 frame sequence into init bytes plus a
// sliding window of GOPs, served to both segment-pull and session-play
// readers.
package muxer

import (
	"errors"
	"sync"

	"camkeep/pkg/recid"
	"camkeep/pkg/video/mp4"
)

// MaxGOPs bounds the ring of cached finalized GOPs.
const MaxGOPs = 3

// FrameCacheSize bounds the ring of cached finalized frames, independent
// of GOP boundaries, used to resume play sessions.
const FrameCacheSize = 256

// MaxSessions bounds the number of concurrent play sessions; the oldest
// is evicted FIFO when a new one is started past this limit.
const MaxSessions = 9

// ErrNotIdr is returned when the first frame handed to NewMuxer is not a
// random-access sample.
var ErrNotIdr = errors.New("first frame is not an idr")

// ErrDtsNotZero is returned when the first frame handed to NewMuxer has a
// non-zero dts offset.
var ErrDtsNotZero = errors.New("first frame dts offset is not zero")

// Frame is one presentation unit accepted by the muxer's producer surface.
// AVCC is shared, immutable AVCC-formatted payload.
type Frame struct {
	PTS                 recid.H264Time
	DTSOffset           int32
	AVCC                []byte
	RandomAccessPresent bool
}

// DTS returns the frame's decode time: pts - dtsOffset.
func (f Frame) DTS() int64 {
	return int64(f.PTS) - int64(f.DTSOffset)
}

// FinalizedFrame is a Frame that has been assigned a frame ID and a
// computed duration, and is now immutable.
type FinalizedFrame struct {
	ID                  uint64
	PTS                 recid.H264Time
	DTSOffset           int32
	Duration            uint32
	RandomAccessPresent bool
	AVCC                []byte
}

// DTS returns the sample's decode time: pts - dtsOffset.
func (f FinalizedFrame) DTS() int64 {
	return int64(f.PTS) - int64(f.DTSOffset)
}

func (f FinalizedFrame) moofFrame() mp4.Frame {
	return mp4.Frame{
		PTS:                 int64(f.PTS),
		DTSOffset:           f.DTSOffset,
		Duration:            f.Duration,
		RandomAccessPresent: f.RandomAccessPresent,
		AVCC:                f.AVCC,
	}
}

// Segment is an immutable finalized GOP: a non-empty, ordered run of
// frames whose first frame is a random-access sample.
type Segment struct {
	ID       uint64
	MuxerID  uint64
	Frames   []FinalizedFrame
	Duration int64 // Sum of frame durations, 90kHz ticks.
}

// StartTime is the pts of the segment's first frame.
func (s *Segment) StartTime() recid.H264Time {
	return s.Frames[0].PTS
}

func newSegment(id, muxerID uint64, frames []FinalizedFrame) *Segment {
	var duration int64
	for _, f := range frames {
		duration += int64(f.Duration)
	}
	return &Segment{ID: id, MuxerID: muxerID, Frames: frames, Duration: duration}
}

type session struct {
	id           uint32
	startTime    recid.H264Time
	firstRequest bool
	nextFrameID  uint64
}

type nextSegmentWaiter struct {
	prevID uint64
	ch     chan *Segment
}

// Muxer is created per (monitor, stream-role) pair and owns all producer,
// session, and segment-pull state behind a single mutex.
type Muxer struct {
	id     uint64
	params mp4.TrackParams
	init   []byte

	mu sync.Mutex

	frameCount  uint64
	nextFrame   Frame
	haveNext    bool // false only before the first producer write.

	frames        []FinalizedFrame // Ring, oldest first, bounded FrameCacheSize.
	gopInProgress []FinalizedFrame
	gops          []*Segment // Ring, oldest first, bounded MaxGOPs.
	gopCount      uint64

	sessions []*session

	framesOnHold      []chan FinalizedFrame
	nextSegmentOnHold []nextSegmentWaiter

	cancelled bool
}

// New creates a Muxer for a stream starting at startTime. first is the
// first accepted frame; it must be a random-access sample with a zero dts
// offset, and its pts is rebased to startTime (the muxer's own clock
// origin, independent of whatever absolute pts upstream assigned it).
func New(id uint64, params mp4.TrackParams, startTime recid.H264Time, first Frame) (*Muxer, error) {
	if !first.RandomAccessPresent {
		return nil, ErrNotIdr
	}
	if first.DTSOffset != 0 {
		return nil, ErrDtsNotZero
	}
	first.PTS = startTime

	init, err := mp4.GenerateInit(params)
	if err != nil {
		return nil, err
	}

	return &Muxer{
		id:        id,
		params:    params,
		init:      init,
		nextFrame: first,
		haveNext:  true,
		gopCount:  1,
	}, nil
}

// ID returns the muxer's stamp, used to reject segments produced by a
// different muxer instance.
func (m *Muxer) ID() uint64 {
	return m.id
}

// Cancel releases all waiters with a cancelled response and drops cached
// state. Safe to call multiple times.
func (m *Muxer) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelled {
		return
	}
	m.cancelled = true

	for _, ch := range m.framesOnHold {
		close(ch)
	}
	m.framesOnHold = nil
	for _, w := range m.nextSegmentOnHold {
		close(w.ch)
	}
	m.nextSegmentOnHold = nil
	m.gops = nil
	m.gopInProgress = nil
	m.frames = nil
}

// WriteFrame accepts the next frame in strict presentation order. The
// muxer keeps a one-frame queue so that the previously accepted frame's
// duration can be computed from this frame's dts before it is finalized.
func (m *Muxer) WriteFrame(frame Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelled || !m.haveNext {
		return
	}

	pending := m.nextFrame
	m.nextFrame = frame

	duration := recid.H264Time(frame.DTS()).SubClamped(recid.H264Time(pending.DTS()))

	m.frameCount++
	finalized := FinalizedFrame{
		ID:                  m.frameCount,
		PTS:                 pending.PTS,
		DTSOffset:           pending.DTSOffset,
		Duration:            uint32(duration),
		RandomAccessPresent: pending.RandomAccessPresent,
		AVCC:                pending.AVCC,
	}

	if len(m.frames) >= FrameCacheSize {
		m.frames = m.frames[1:]
	}
	m.frames = append(m.frames, finalized)
	m.gopInProgress = append(m.gopInProgress, finalized)

	for _, ch := range m.framesOnHold {
		ch <- finalized
		close(ch)
	}
	m.framesOnHold = nil

	if frame.RandomAccessPresent {
		if len(m.gops) >= MaxGOPs {
			m.gops = m.gops[1:]
		}
		gop := newSegment(m.gopCount, m.id, m.gopInProgress)
		m.gopInProgress = nil
		m.gops = append(m.gops, gop)
		m.gopCount++

		remaining := m.nextSegmentOnHold[:0]
		for _, w := range m.nextSegmentOnHold {
			if gop.ID > w.prevID {
				w.ch <- gop
				close(w.ch)
			} else {
				remaining = append(remaining, w)
			}
		}
		m.nextSegmentOnHold = remaining
	}
}

// Init returns the ftyp+moov init segment, generated once at creation.
func (m *Muxer) Init() []byte {
	return m.init
}
