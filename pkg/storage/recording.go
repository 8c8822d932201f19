package storage

import (
	"errors"
	"fmt"
	"time"

	"camkeep/pkg/recid"
)

// Recording contains identifier and path. Path is the recording's
// directory, which holds its video_<W>x<H>.meta and .mdat files;
// appending `.json` to Path gives the optional data file beside it.
type Recording struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// RecordingData is the event data marshaled to the sidecar `.json` file
// that sits next to a recording's directory.
type RecordingData struct {
	Start  recid.UnixNano `json:"start"`
	End    recid.UnixNano `json:"end"`
	Events []Event        `json:"events"`
}

// Event is a recording trigger event, shared between the crawler's
// `include_data` sidecar decoration and the event DB.
type Event struct {
	Time        recid.UnixNano `json:"time"`
	Duration    time.Duration  `json:"duration,omitempty"`
	RecDuration time.Duration  `json:"rec_duration,omitempty"`
	Detections  []Detection    `json:"detections,omitempty"`
	Source      string         `json:"source,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("\n Time: %v\n Detections: %v\n Duration: %v\n RecDuration: %v",
		e.Time, e.Detections, e.Duration, e.RecDuration)
}

// ErrValueMissing indicates a required event field was not set.
var ErrValueMissing = errors.New("value missing")

// Validate reports whether the event has the fields required for storage.
func (e Event) Validate() error {
	if e.Time == 0 {
		return fmt.Errorf("{%v\n}\n'Time': %w", e, ErrValueMissing)
	}
	if e.RecDuration == 0 {
		return fmt.Errorf("{%v\n}\n'RecDuration': %w", e, ErrValueMissing)
	}
	return nil
}

// Detection is one labelled detection backing an event.
type Detection struct {
	Label  string  `json:"label,omitempty"`
	Score  float32 `json:"score,omitempty"`
	Region *Region `json:"region,omitempty"`
}

// Region is the optional rectangle-or-polygon area a detection occurred
// in, in frame-relative coordinates. At most one of Rect/Polygon is set.
type Region struct {
	Rect    *Rect    `json:"rect,omitempty"`
	Polygon *Polygon `json:"polygon,omitempty"`
}

func (r *Region) String() string {
	return fmt.Sprintf("%v, %v", r.Rect, r.Polygon)
}

// Rect is an axis-aligned detection region.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is one vertex of a Polygon.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon is an ordered list of vertices describing a detection region
// that isn't representable as an axis-aligned rectangle.
type Polygon []Point

// PointNormalized is a Point with both coordinates normalized to
// parts-per-million of the frame dimension, so regions survive a
// resolution change between sub and main stream.
type PointNormalized struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

// PolygonNormalized is a Polygon in normalized coordinates.
type PolygonNormalized []PointNormalized

// Normalize maps value in [0, max] to parts-per-million of max.
func Normalize(value, max uint16) uint32 {
	return uint32((1_000_000 * uint64(value)) / uint64(max))
}

// Denormalize maps a parts-per-million value back to [0, max], rounding
// up so Normalize round-trips exactly.
func Denormalize(value uint32, max uint16) uint16 {
	return uint16(divCeil(uint64(value)*uint64(max), 1_000_000))
}

func divCeil(a, b uint64) uint64 {
	d := a / b
	if a%b > 0 {
		d++
	}
	return d
}

// NormalizePolygon maps each vertex into normalized coordinates for a
// w-by-h frame.
func NormalizePolygon(input Polygon, w, h uint16) PolygonNormalized {
	out := make(PolygonNormalized, len(input))
	for i, p := range input {
		out[i] = PointNormalized{
			X: Normalize(uint16(p.X), w),
			Y: Normalize(uint16(p.Y), h),
		}
	}
	return out
}

// DenormalizePolygon maps each vertex back to pixel coordinates for a
// w-by-h frame.
func DenormalizePolygon(input PolygonNormalized, w, h uint16) Polygon {
	out := make(Polygon, len(input))
	for i, p := range input {
		out[i] = Point{
			X: int(Denormalize(p.X, w)),
			Y: int(Denormalize(p.Y, h)),
		}
	}
	return out
}
