package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"camkeep/pkg/recid"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		max        uint16
		value      uint16
		normalized uint32
	}{
		{640, 1, 1_562},
		{640, 64, 100_000},
		{640, 100, 156_250},
		{640, 640, 1_000_000},
		{480, 1, 2_083},
		{480, 64, 133_333},
		{480, 100, 208_333},
		{480, 480, 1_000_000},
		{100, 6553, 65_530_000},
		{100, 65535, 655_350_000},
		{655, 100, 152_671},
		{6553, 100, 15_260},
		{65535, 100, 1_525},
		{6553, 6553, 1_000_000},
	}
	for _, tc := range cases {
		require.Equal(t, tc.normalized, Normalize(tc.value, tc.max))
		require.Equal(t, tc.value, Denormalize(tc.normalized, tc.max))
	}
}

func TestValidateEvent(t *testing.T) {
	cases := map[string]struct {
		input    Event
		expected error
	}{
		"working":            {Event{Time: recid.UnixNano(1), RecDuration: time.Second}, nil},
		"missingTime":        {Event{RecDuration: time.Second}, ErrValueMissing},
		"missingRecDuration": {Event{Time: recid.UnixNano(1)}, ErrValueMissing},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.input.Validate()
			require.ErrorIs(t, err, tc.expected)
		})
	}
}
