package recid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestH264TimeRoundTrip(t *testing.T) {
	// Both conversions floor, so a sub-tick remainder is lost on the way
	// back: 1 tick is 11111ns, which converts back to 0 ticks.
	cases := []struct {
		ticks H264Time
		nanos UnixNano
		back  H264Time
	}{
		{0, 0, 0},
		{1, 11_111, 0},
		{90_000, Second, 90_000},
		{90_001, Second + 11_111, 90_000},
		{3 * 90_000, 3 * Second, 3 * 90_000},
	}
	for _, tc := range cases {
		nanos, err := tc.ticks.ToUnixNano()
		require.NoError(t, err)
		require.Equal(t, tc.nanos, nanos)

		back, err := UnixNanoToH264Time(nanos)
		require.NoError(t, err)
		require.Equal(t, tc.back, back)
	}
}

func TestH264TimeAddOverflow(t *testing.T) {
	_, err := H264Time(math.MaxInt64).Add(1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestH264TimeSubClamped(t *testing.T) {
	require.Equal(t, H264Time(0), H264Time(5).SubClamped(10))
	require.Equal(t, H264Time(5), H264Time(10).SubClamped(5))
}

func TestParseRecordingID(t *testing.T) {
	id, err := ParseRecordingID("2000-01-01_01-01-11_m1")
	require.NoError(t, err)
	require.Equal(t, "2000-01-01_01-01-11_m1", id.String())
	require.Equal(t, "m1", id.MonitorID())
}

func TestParseRecordingIDRoundTrip(t *testing.T) {
	inputs := []string{
		"2000-01-01_01-01-11_m1",
		"2000-01-01_01-01-22_monitorABC123",
		"1970-01-01_00-00-00_x",
	}
	for _, s := range inputs {
		id, err := ParseRecordingID(s)
		require.NoError(t, err)
		require.Equal(t, s, id.String())
	}
}

func TestParseRecordingIDInvalid(t *testing.T) {
	cases := []string{
		"",
		"short",
		"2000-01-01_01-01-11_", // empty monitor id
		"2000-13-01_01-01-11_m1",
		"2000-01-01 01-01-11_m1",
		"2000-01-01_01-01-11_has a space",
	}
	for _, s := range cases {
		_, err := ParseRecordingID(s)
		require.Error(t, err)
	}
}

func TestRecordingIDFullPath(t *testing.T) {
	id, err := ParseRecordingID("2000-01-02_03-04-05_m1")
	require.NoError(t, err)
	require.Equal(t,
		"/root/2000/01/02/m1/2000-01-02_03-04-05_m1",
		id.FullPath("/root"))
}

func TestRecordingIDFromNanos(t *testing.T) {
	id := RecordingIDFromNanos(Second, "x")
	require.Equal(t, "1970-01-01_00-00-01_x", id.String())
	require.Equal(t, Second, id.Nanos())

	id2 := RecordingIDFromNanos(Second-1, "x")
	require.Equal(t, "1970-01-01_00-00-00_x", id2.String())
	require.Equal(t, Second-1, id2.Nanos())
}
