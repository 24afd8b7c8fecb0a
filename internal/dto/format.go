package dto

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a size with base-1024 units rounded to two decimals,
// e.g. 0 -> "0 B", 1024 -> "1 KB", 1536 -> "1.5 KB".
func FormatBytes(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[unit]
}

var durationUnits = []struct {
	size time.Duration
	name string
}{
	{24 * time.Hour, "day"},
	{time.Hour, "hour"},
	{time.Minute, "minute"},
	{time.Second, "second"},
}

// FormatDuration collapses d to its coarsest nonzero unit, truncating the
// rest: 90 minutes is "1 hour", 36 hours is "1 day".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	for _, u := range durationUnits {
		if n := int64(d / u.size); n > 0 {
			return plural(n, u.name)
		}
	}
	return "0 seconds"
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// RoundPercent returns current/target as a percentage rounded to two
// decimals. A non-positive target yields 0.
func RoundPercent(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Round(current/target*10000) / 100
}

// TimeAgo describes t relative to now ("3 hours ago").
func TimeAgo(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
