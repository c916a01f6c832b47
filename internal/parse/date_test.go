package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateDayFirst(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"03/02/2026", time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"20/11/2025", time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)},
		{"3/Jan/2026", time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"19Jan2026", time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)},
		{"16. January 2026", time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"5 February 2026", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)},
		{"24/02/26", time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Date(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestDateInvalid(t *testing.T) {
	assert.Nil(t, Date(""))
	assert.Nil(t, Date("not a date"))
	assert.Nil(t, Date("99/99/2026"))
}

func TestDateCollapsesWhitespace(t *testing.T) {
	got := Date("  16.  January   2026 ")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), *got)
}

func TestEpochSentinel(t *testing.T) {
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), Epoch)
}
