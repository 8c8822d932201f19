// Package recid implements the 90 kHz H264 timescale, Unix-nanosecond
// time, and recording-ID primitives the rest of the recording engine is
// built on.
package recid

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"
)

// UnixNano is a signed count of nanoseconds since the Unix epoch.
type UnixNano int64

// Second is one second expressed in UnixNano.
const Second UnixNano = 1_000_000_000

// H264Time is a signed tick count at the 90 kHz H264 presentation timescale.
type H264Time int64

// H264TimeScale is the number of H264Time ticks per second.
const H264TimeScale = 90_000

// ErrOverflow indicates checked arithmetic would overflow int64.
var ErrOverflow = errors.New("arithmetic overflow")

// Add returns a+b, or ErrOverflow if the result overflows int64.
func (a UnixNano) Add(b UnixNano) (UnixNano, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("unix nano add %d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// Sub returns a-b, or ErrOverflow if the result overflows int64.
func (a UnixNano) Sub(b UnixNano) (UnixNano, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, fmt.Errorf("unix nano sub %d - %d: %w", a, b, ErrOverflow)
	}
	return diff, nil
}

// Add returns a+b, or ErrOverflow if the result overflows int64.
func (a H264Time) Add(b H264Time) (H264Time, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("h264 time add %d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// Sub returns a-b, or ErrOverflow if the result overflows int64.
func (a H264Time) Sub(b H264Time) (H264Time, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, fmt.Errorf("h264 time sub %d - %d: %w", a, b, ErrOverflow)
	}
	return diff, nil
}

// SubClamped returns a-b, clamped to zero if negative. Used for frame
// duration computation, where a decreasing dts must not go negative.
func (a H264Time) SubClamped(b H264Time) H264Time {
	diff := a - b
	if diff < 0 {
		return 0
	}
	return diff
}

// ToUnixNano converts ticks at 90kHz to nanoseconds.
func (t H264Time) ToUnixNano() (UnixNano, error) {
	secs := int64(t) / H264TimeScale
	dec := int64(t) % H264TimeScale

	// secs*SECOND + (dec*SECOND)/90_000
	secsPart, err := checkedMul(secs, int64(Second))
	if err != nil {
		return 0, fmt.Errorf("h264 time to unix nano: %w", err)
	}
	decPart, err := checkedMul(dec, int64(Second))
	if err != nil {
		return 0, fmt.Errorf("h264 time to unix nano: %w", err)
	}
	decPart /= H264TimeScale

	total, err := UnixNano(secsPart).Add(UnixNano(decPart))
	if err != nil {
		return 0, fmt.Errorf("h264 time to unix nano: %w", err)
	}
	return total, nil
}

// UnixNanoToH264Time converts nanoseconds to ticks at 90kHz.
func UnixNanoToH264Time(n UnixNano) (H264Time, error) {
	secs := int64(n) / int64(Second)
	dec := int64(n) % int64(Second)

	decTicks, err := checkedMul(dec, H264TimeScale)
	if err != nil {
		return 0, fmt.Errorf("unix nano to h264 time: %w", err)
	}
	decTicks /= int64(Second)

	secTicks, err := checkedMul(secs, H264TimeScale)
	if err != nil {
		return 0, fmt.Errorf("unix nano to h264 time: %w", err)
	}

	total, err := H264Time(secTicks).Add(H264Time(decTicks))
	if err != nil {
		return 0, fmt.Errorf("unix nano to h264 time: %w", err)
	}
	return total, nil
}

func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/b != a {
		return 0, fmt.Errorf("multiply %d * %d: %w", a, b, ErrOverflow)
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return 0, fmt.Errorf("multiply %d * %d: %w", a, b, ErrOverflow)
	}
	return result, nil
}

const recordingIDLayout = "2006-01-02_15-04-05_"

var monitorIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{1,24}$`)

// ErrInvalidRecordingID is returned when a string does not match the
// recording ID grammar.
var ErrInvalidRecordingID = errors.New("invalid recording id")

// RecordingID is the parsed, validated form of "YYYY-MM-DD_hh-mm-ss_<monitor_id>".
type RecordingID struct {
	raw       string
	nanos     UnixNano
	monitorID string
}

// MonitorID returns the monitor ID component.
func (r RecordingID) MonitorID() string {
	return r.monitorID
}

// Nanos returns the parsed UnixNano timestamp.
func (r RecordingID) Nanos() UnixNano {
	return r.nanos
}

// String returns the original string form. Round-trips byte-for-byte
// for every string ParseRecordingID accepts.
func (r RecordingID) String() string {
	return r.raw
}

// ParseRecordingID validates and parses a recording ID string.
func ParseRecordingID(s string) (RecordingID, error) {
	if len(s) < 20 {
		return RecordingID{}, fmt.Errorf("%w: %q: too short", ErrInvalidRecordingID, s)
	}
	if len(s) < len(recordingIDLayout)+1 {
		return RecordingID{}, fmt.Errorf("%w: %q", ErrInvalidRecordingID, s)
	}

	calendar := s[:len(recordingIDLayout)-1]
	monitorID := s[len(recordingIDLayout):]

	if s[len(recordingIDLayout)-1] != '_' {
		return RecordingID{}, fmt.Errorf("%w: %q: missing monitor separator", ErrInvalidRecordingID, s)
	}
	if !monitorIDPattern.MatchString(monitorID) {
		return RecordingID{}, fmt.Errorf("%w: %q: bad monitor id", ErrInvalidRecordingID, s)
	}

	t, err := time.Parse("2006-01-02_15-04-05", calendar)
	if err != nil {
		return RecordingID{}, fmt.Errorf("%w: %q: %v", ErrInvalidRecordingID, s, err)
	}
	t = t.UTC()

	nanos := UnixNano(t.UnixNano())
	if nanos < 0 {
		return RecordingID{}, fmt.Errorf("%w: %q: negative time", ErrInvalidRecordingID, s)
	}

	return RecordingID{raw: s, nanos: nanos, monitorID: monitorID}, nil
}

// RecordingIDFromNanos builds a RecordingID for the second containing t,
// truncating (floor) to second granularity for the string form while
// preserving the full nanosecond value.
func RecordingIDFromNanos(t UnixNano, monitorID string) RecordingID {
	secs := int64(t) / int64(Second)
	if int64(t)%int64(Second) < 0 {
		secs--
	}
	whole := time.Unix(secs, 0).UTC()
	raw := whole.Format("2006-01-02_15-04-05") + "_" + monitorID
	return RecordingID{raw: raw, nanos: t, monitorID: monitorID}
}

// FullPath projects the recording ID onto its five-component path:
// root/YYYY/MM/DD/<monitor_id>/<recording_id>.
func (r RecordingID) FullPath(root string) string {
	whole := time.Unix(int64(r.nanos)/int64(Second), 0).UTC()
	return root + "/" +
		whole.Format("2006") + "/" +
		whole.Format("01") + "/" +
		whole.Format("02") + "/" +
		r.monitorID + "/" +
		r.raw
}
