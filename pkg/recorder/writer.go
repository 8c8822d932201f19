// Package recorder implements the recording writer (C4): it accepts
// finalized segments from a muxer and persists them into a pair of
// content-addressed files per recording, closing with an end-of-recording
// marker.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"camkeep/pkg/log"
	"camkeep/pkg/muxer"
	"camkeep/pkg/recid"
	"camkeep/pkg/video/customformat"
	"camkeep/pkg/video/mp4"
)

// NextSegmentFunc matches muxer.Muxer.NextSegment: it returns the first
// committed segment after prev, or (nil, nil) once ctx is cancelled
// before one arrives.
type NextSegmentFunc func(ctx context.Context, prev *muxer.Segment) (*muxer.Segment, error)

// ErrSkippedSegment indicates a segment arrived out of the strictly
// increasing order a single recording requires. The writer treats this
// as fatal rather than silently leaving a gap in the sample index: the
// caller lost segments (e.g. the muxer's MaxGOPs ring rolled past them
// before this writer asked for the next one) and must start a fresh
// recording.
var ErrSkippedSegment = errors.New("skipped segment")

// Result reports the outcome of a completed Write: the last segment
// successfully persisted, and the terminal state needed to start the
// next back-to-back recording.
type Result struct {
	RecordingID recid.RecordingID
	Path        string
	EndTime     recid.UnixNano
	LastSegment *muxer.Segment
}

// Writer persists a continuous run of one muxer's segments to a single
// recording directory: a .meta index, an .mdat payload, and a zero-byte
// <end_time>.end marker written only once the recording closes cleanly.
//
// A write error aborts the recording immediately: the partial .meta/.mdat
// files are left on disk without an .end marker, which the crawler
// treats as "in progress" (and playback skips); retention still reclaims
// them like any other recording.
type Writer struct {
	root      string
	monitorID string
	params    mp4.TrackParams
	log       *log.Logger
}

// New returns a Writer rooted at root (the configured recordings
// directory), persisting recordings for monitorID with the given track
// parameters.
func New(root, monitorID string, params mp4.TrackParams, logger *log.Logger) *Writer {
	return &Writer{root: root, monitorID: monitorID, params: params, log: logger}
}

func (w *Writer) logf(level log.Level, format string, a ...interface{}) {
	if w.log == nil {
		return
	}
	var ev *log.Event
	switch level {
	case log.LevelError:
		ev = w.log.Error()
	case log.LevelWarning:
		ev = w.log.Warn()
	case log.LevelDebug:
		ev = w.log.Debug()
	default:
		ev = w.log.Info()
	}
	ev.Src("recorder").Monitor(w.monitorID).Msgf(format, a...)
}

// Write creates a fresh recording directory under root and persists
// first, then every subsequent segment nextSegment returns, until ctx is
// cancelled or maxDuration has elapsed since first's start time. It
// returns once the recording has been closed (end marker written) or an
// error has aborted it.
func (w *Writer) Write(
	ctx context.Context,
	first *muxer.Segment,
	nextSegment NextSegmentFunc,
	maxDuration time.Duration,
) (*Result, error) {
	startTicks := first.StartTime()
	startNanos, err := startTicks.ToUnixNano()
	if err != nil {
		return nil, fmt.Errorf("recording start time: %w", err)
	}

	recID := recid.RecordingIDFromNanos(startNanos, w.monitorID)
	dir := recID.FullPath(w.root)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("make recording directory: %w", err)
	}
	videoBase := fmt.Sprintf("video_%dx%d", w.params.Width, w.params.Height)
	metaPath := filepath.Join(dir, videoBase+".meta")
	mdatPath := filepath.Join(dir, videoBase+".mdat")

	w.logf(log.LevelInfo, "starting recording: %v", recID)

	metaFile, err := os.OpenFile(metaPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create meta file: %w", err)
	}
	defer metaFile.Close()

	mdatFile, err := os.OpenFile(mdatPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create mdat file: %w", err)
	}
	defer mdatFile.Close()

	header := customformat.Header{
		StartTime: int64(startTicks),
		Width:     w.params.Width,
		Height:    w.params.Height,
		ExtraData: w.params.ExtraData,
	}
	fw, err := customformat.NewWriter(metaFile, mdatFile, header)
	if err != nil {
		return nil, fmt.Errorf("new writer: %w", err)
	}

	endTime := startNanos
	last := first
	maxDurationTicks := int64(maxDuration) * recid.H264TimeScale / int64(time.Second)
	stopTicks := int64(startTicks) + maxDurationTicks

	write := func(seg *muxer.Segment) error {
		if err := writeSegment(fw, seg); err != nil {
			return fmt.Errorf("write segment %d: %w", seg.ID, err)
		}
		if err := metaFile.Sync(); err != nil {
			return fmt.Errorf("sync meta file: %w", err)
		}
		if err := mdatFile.Sync(); err != nil {
			return fmt.Errorf("sync mdat file: %w", err)
		}
		lastFrame := seg.Frames[len(seg.Frames)-1]
		segEnd := lastFrame.DTS() + int64(lastFrame.Duration)
		nanos, err := recid.H264Time(segEnd).ToUnixNano()
		if err != nil {
			return fmt.Errorf("segment end time: %w", err)
		}
		endTime = nanos
		last = seg
		return nil
	}

	if err := write(first); err != nil {
		w.logf(log.LevelError, "recording %v: %v", recID, err)
		return nil, err
	}

	for {
		if ctx.Err() != nil {
			break
		}
		if int64(last.StartTime()) >= stopTicks {
			break
		}

		seg, err := nextSegment(ctx, last)
		if err != nil {
			w.logf(log.LevelError, "recording %v: %v", recID, err)
			return nil, err
		}
		if seg == nil {
			break
		}
		if seg.ID != last.ID+1 {
			err := fmt.Errorf("%w: expected %d, got %d", ErrSkippedSegment, last.ID+1, seg.ID)
			w.logf(log.LevelError, "recording %v: %v", recID, err)
			return nil, err
		}

		if err := write(seg); err != nil {
			w.logf(log.LevelError, "recording %v: %v", recID, err)
			return nil, err
		}
	}

	endPath := filepath.Join(dir, fmt.Sprintf("%d.end", endTime))
	if err := os.WriteFile(endPath, nil, 0o600); err != nil {
		return nil, fmt.Errorf("write end marker: %w", err)
	}

	w.logf(log.LevelInfo, "recording saved: %v", recID)

	return &Result{
		RecordingID: recID,
		Path:        dir,
		EndTime:     endTime,
		LastSegment: last,
	}, nil
}

func writeSegment(w *customformat.Writer, seg *muxer.Segment) error {
	for _, f := range seg.Frames {
		sample := customformat.Sample{
			RandomAccessPresent: f.RandomAccessPresent,
			PTS:                 int64(f.PTS),
			DTSOffset:           f.DTSOffset,
			Duration:            f.Duration,
		}
		if err := w.WriteSample(sample, f.AVCC); err != nil {
			return err
		}
	}
	return nil
}
