package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func intp(v int) *int { return &v }

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		freq     Frequency
		interval int
		dom      *int
		want     string
	}{
		{"daily", "2024-03-10", Daily, 3, nil, "2024-03-13"},
		{"weekly", "2024-03-10", Weekly, 2, nil, "2024-03-24"},
		{"monthly keeps day", "2024-03-15", Monthly, 1, nil, "2024-04-15"},
		{"monthly clamps into leap february", "2024-01-31", Monthly, 1, intp(31), "2024-02-29"},
		{"monthly clamps into short february", "2023-01-31", Monthly, 1, intp(31), "2023-02-28"},
		{"monthly pin restores day after clamp", "2024-02-29", Monthly, 1, intp(31), "2024-03-31"},
		{"monthly without pin drifts", "2024-02-29", Monthly, 1, nil, "2024-03-29"},
		{"monthly pins earlier day", "2024-03-20", Monthly, 1, intp(5), "2024-04-05"},
		{"monthly crosses year", "2024-11-30", Monthly, 3, nil, "2025-02-28"},
		{"monthly twelve months", "2024-05-10", Monthly, 12, nil, "2025-05-10"},
		{"yearly", "2023-06-01", Yearly, 1, nil, "2024-06-01"},
		{"yearly leap day clamps", "2024-02-29", Yearly, 1, nil, "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(date(tt.current), tt.freq, tt.interval, tt.dom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestNext_KeepsTimeOfDay(t *testing.T) {
	current := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	got, err := Next(current, Monthly, 1, intp(31))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC), got)
}

func TestNext_InvalidRules(t *testing.T) {
	_, err := Next(date("2024-01-01"), Daily, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = Next(date("2024-01-01"), Frequency("hourly"), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = Next(date("2024-01-01"), Monthly, 1, intp(32))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestNextOccurrence_DaysOfWeek(t *testing.T) {
	// 2024-03-13 is a Wednesday.
	rule := Rule{Frequency: Weekly, Interval: 1, DaysOfWeek: []int{1, 5}} // Monday, Friday

	got, err := NextOccurrence(rule, date("2024-03-13"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", got.Format("2006-01-02"))

	got, err = NextOccurrence(rule, date("2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-18", got.Format("2006-01-02"))

	rule.Interval = 2
	got, err = NextOccurrence(rule, date("2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-25", got.Format("2006-01-02"))
}

func TestNextOccurrence_SundayIsEndOfWeek(t *testing.T) {
	rule := Rule{Frequency: Weekly, Interval: 1, DaysOfWeek: []int{0}}

	// Wednesday to the coming Sunday, then Sunday to the next Sunday.
	got, err := NextOccurrence(rule, date("2024-03-13"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-17", got.Format("2006-01-02"))

	got, err = NextOccurrence(rule, got)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-24", got.Format("2006-01-02"))
}

func TestNextOccurrence_FallsBackToNext(t *testing.T) {
	rule := Rule{Frequency: Monthly, Interval: 1, DayOfMonth: intp(31)}

	got, err := NextOccurrence(rule, date("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got.Format("2006-01-02"))

	_, err = NextOccurrence(Rule{Frequency: Weekly, Interval: 1, DaysOfWeek: []int{7}}, date("2024-01-31"))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestIsDue(t *testing.T) {
	now := date("2024-06-10")
	past := date("2024-06-01")
	future := date("2024-07-01")

	assert.True(t, IsDue(true, past, nil, now))
	assert.True(t, IsDue(true, now, nil, now))
	assert.True(t, IsDue(true, past, &now, now), "end date equal to now still fires")
	assert.False(t, IsDue(false, past, nil, now))
	assert.False(t, IsDue(true, future, nil, now))
	assert.False(t, IsDue(true, past, &past, now))
}
