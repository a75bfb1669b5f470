package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestYesterday(t *testing.T) {
	testCases := []struct {
		now      time.Time
		expected time.Time
	}{
		{
			now:      time.Date(2023, 12, 5, 14, 30, 0, 0, time.UTC),
			expected: time.Date(2023, 12, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			now:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			now:      time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC),
			expected: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Yesterday(FixedTime{At: test.now}))
	}
}

func TestStandardTimeIsUTC(t *testing.T) {
	require.Equal(t, time.UTC, NewStandardTime().Now().Location())
}
