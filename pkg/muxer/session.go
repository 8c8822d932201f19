package muxer

import (
	"context"

	"camkeep/pkg/recid"
	"camkeep/pkg/video/mp4"
)

// StartStatus is the outcome of StartSession.
type StartStatus int

const (
	// StartReady indicates the session was created.
	StartReady StartStatus = iota
	// StartNotReady indicates no GOP has been finalized yet.
	StartNotReady
	// StartAlreadyExists indicates sessionID is already in use.
	StartAlreadyExists
)

// StartResult is returned by StartSession.
type StartResult struct {
	Status    StartStatus
	StartTime recid.UnixNano
	Codecs    string
}

// StartSession registers a new play session anchored at the first frame
// of the most recently closed GOP. The session consumes frames from that
// point onward on subsequent Play calls.
func (m *Muxer) StartSession(sessionID uint32) (StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.id == sessionID {
			return StartResult{Status: StartAlreadyExists}, nil
		}
	}

	if len(m.gops) == 0 {
		return StartResult{Status: StartNotReady}, nil
	}
	latest := m.gops[len(m.gops)-1]
	startFrame := latest.Frames[0]

	if len(m.sessions) >= MaxSessions {
		m.sessions = m.sessions[1:]
	}
	m.sessions = append(m.sessions, &session{
		id:           sessionID,
		startTime:    startFrame.PTS,
		firstRequest: true,
		nextFrameID:  startFrame.ID,
	})

	startNanos, err := startFrame.PTS.ToUnixNano()
	if err != nil {
		return StartResult{}, err
	}

	return StartResult{
		Status:    StartReady,
		StartTime: startNanos,
		Codecs:    m.params.Codec,
	}, nil
}

// PlayStatus is the outcome of Play.
type PlayStatus int

const (
	// PlayReady indicates Data holds the response body for this request.
	PlayReady PlayStatus = iota
	// PlaySessionNotExist indicates sessionID was never started, or was
	// evicted by MaxSessions pressure.
	PlaySessionNotExist
	// PlayFramesExpired indicates the session fell too far behind the
	// live edge and its next frame aged out of the frame cache.
	PlayFramesExpired
	// PlayCancelled indicates the context was cancelled before a new
	// frame arrived.
	PlayCancelled
)

// PlayResult is returned by Play.
type PlayResult struct {
	Status PlayStatus
	Data   []byte
}

// Play answers one request for a play session: if the session has
// buffered frames to catch up on, it returns them immediately (prefixed
// with the init segment on the session's first request); otherwise it
// blocks until exactly one new frame is written, or ctx is cancelled.
func (m *Muxer) Play(ctx context.Context, sessionID uint32) (PlayResult, error) {
	m.mu.Lock()

	sess := m.findSession(sessionID)
	if sess == nil {
		m.mu.Unlock()
		return PlayResult{Status: PlaySessionNotExist}, nil
	}

	if len(m.frames) > 0 {
		last := m.frames[len(m.frames)-1]
		if sess.nextFrameID <= last.ID {
			data, err := m.catchUp(sess, last)
			m.mu.Unlock()
			if err != nil {
				return PlayResult{}, err
			}
			if data == nil {
				return PlayResult{Status: PlayFramesExpired}, nil
			}
			return PlayResult{Status: PlayReady, Data: data}, nil
		}
	}

	ch := make(chan FinalizedFrame, 1)
	m.framesOnHold = append(m.framesOnHold, ch)
	startTime := sess.startTime
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		m.removeFramesOnHold(ch)
		return PlayResult{Status: PlayCancelled}, nil
	case frame, ok := <-ch:
		if !ok {
			return PlayResult{Status: PlayCancelled}, nil
		}
		data, err := muxFrames(startTime, []FinalizedFrame{frame})
		if err != nil {
			return PlayResult{}, err
		}

		m.mu.Lock()
		if s := m.findSession(sessionID); s != nil {
			s.nextFrameID = frame.ID + 1
			s.firstRequest = false
		}
		m.mu.Unlock()

		return PlayResult{Status: PlayReady, Data: data}, nil
	}
}

func (m *Muxer) findSession(id uint32) *session {
	for _, s := range m.sessions {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (m *Muxer) removeFramesOnHold(target chan FinalizedFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ch := range m.framesOnHold {
		if ch == target {
			m.framesOnHold = append(m.framesOnHold[:i], m.framesOnHold[i+1:]...)
			return
		}
	}
}

// catchUp returns the response body for every buffered frame from the
// session's next expected frame id through last, or nil if that frame id
// has already aged out of the frame cache.
func (m *Muxer) catchUp(sess *session, last FinalizedFrame) ([]byte, error) {
	startIdx := -1
	for i, f := range m.frames {
		if f.ID == sess.nextFrameID {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil, nil
	}

	pending := m.frames[startIdx:]
	data, err := muxFrames(sess.startTime, pending)
	if err != nil {
		return nil, err
	}

	if sess.firstRequest {
		out := make([]byte, 0, len(m.init)+len(data))
		out = append(out, m.init...)
		out = append(out, data...)
		data = out
	}

	sess.nextFrameID = last.ID + 1
	sess.firstRequest = false
	return data, nil
}

// muxFrames renders a run of finalized frames into moof+mdat-header+avcc
// chunks, one run per call to mp4.GenerateMoof (tfdt is relative to
// startTime, the play session's anchor, not the muxer's creation time).
func muxFrames(startTime recid.H264Time, frames []FinalizedFrame) ([]byte, error) {
	out := make([]byte, 0)
	for _, f := range frames {
		moof, err := mp4.GenerateMoof(int64(startTime), []mp4.Frame{f.moofFrame()})
		if err != nil {
			return nil, err
		}
		out = append(out, moof...)
		out = append(out, f.AVCC...)
	}
	return out, nil
}
