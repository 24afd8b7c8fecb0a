package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1234567, "1.18 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
		{3 * 1024 * 1024 * 1024 * 1024 * 1024, "3072 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.size), "size %d", tt.size)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{90 * time.Minute, "1 hour"},
		{36 * time.Hour, "1 day"},
		{72*time.Hour + 5*time.Minute, "3 days"},
		{250 * time.Millisecond, "0 seconds"},
		{1500 * time.Millisecond, "1 second"},
		{-2 * time.Minute, "2 minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), "duration %s", tt.d)
	}
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 33.33, RoundPercent(1, 3))
	assert.Equal(t, 66.67, RoundPercent(2, 3))
	assert.Equal(t, 150.0, RoundPercent(15, 10))
	assert.Equal(t, 0.0, RoundPercent(5, 0))
	assert.Equal(t, 0.0, RoundPercent(5, -1))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 hours ago", TimeAgo(now.Add(-3*time.Hour), now))
	assert.Equal(t, "now", TimeAgo(now, now))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.50 USD", FormatAmount(1250, "USD"))
	assert.Equal(t, "0.05 EUR", FormatAmount(5, "EUR"))
	assert.Equal(t, "-3.00 USD", FormatAmount(-300, "USD"))
}
