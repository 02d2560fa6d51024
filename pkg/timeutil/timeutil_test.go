package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5 min ago"},
		{3 * time.Hour, "3 h ago"},
		{30 * time.Hour, "yesterday"},
		{4 * 24 * time.Hour, "4 days ago"},
		{8 * 24 * time.Hour, "1 week ago"},
		{15 * 24 * time.Hour, "2 weeks ago"},
		{65 * 24 * time.Hour, "2 months ago"},
		{400 * 24 * time.Hour, "1 year ago"},
		{-20 * time.Minute, "in 20 min"},
		{-30 * time.Hour, "tomorrow"},
		{-5 * 24 * time.Hour, "in 5 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRelative(now.Add(-tt.ago), now), tt.ago.String())
	}

	assert.Empty(t, FormatRelative(time.Time{}, now))
}

func TestStamp(t *testing.T) {
	assert.Empty(t, Stamp(time.Time{}))
	ts := time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-01-10 09:30", Stamp(ts))
}
