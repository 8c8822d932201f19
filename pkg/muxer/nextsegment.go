package muxer

import "context"

// NextSegment returns the first cached segment with an id greater than
// prev's (or the oldest cached segment if prev is nil or belongs to a
// different, foreign muxer, or names an id the muxer has since rolled
// past). If none is cached yet, it blocks until one is produced or ctx is
// cancelled, in which case it returns (nil, nil): cancellation is not an
// error, it is simply the absence of a next segment.
func (m *Muxer) NextSegment(ctx context.Context, prev *Segment) (*Segment, error) {
	m.mu.Lock()

	var prevID uint64
	if prev != nil && prev.MuxerID == m.id && prev.ID < m.gopCount {
		prevID = prev.ID
	}

	for _, g := range m.gops {
		if g.ID > prevID {
			m.mu.Unlock()
			return g, nil
		}
	}

	ch := make(chan *Segment, 1)
	m.nextSegmentOnHold = append(m.nextSegmentOnHold, nextSegmentWaiter{prevID: prevID, ch: ch})
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		m.removeNextSegmentWaiter(ch)
		return nil, nil
	case seg, ok := <-ch:
		if !ok {
			return nil, nil
		}
		return seg, nil
	}
}

func (m *Muxer) removeNextSegmentWaiter(target chan *Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.nextSegmentOnHold {
		if w.ch == target {
			m.nextSegmentOnHold = append(m.nextSegmentOnHold[:i], m.nextSegmentOnHold[i+1:]...)
			return
		}
	}
}
