package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdinal_Weekly(t *testing.T) {
	parentStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{Freq: FreqWeekly, Interval: 1}

	tests := []struct {
		name     string
		anchor   time.Time
		expected int
		found    bool
	}{
		{"parent is always 1", parentStart, 1, true},
		{"first repeat", time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), 2, true},
		{"fifth slot", time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC), 5, true},
		{"time-of-day edit keeps the slot", time.Date(2024, 1, 8, 13, 30, 0, 0, time.UTC), 2, true},
		{"date never in series", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ordinal(parentStart, rule, tt.anchor, 0)
			if !tt.found {
				assert.True(t, got.IsAbsent())
				return
			}
			value, ok := got.Get()
			require.True(t, ok)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestOrdinal_MonthlyAgreesWithStepper(t *testing.T) {
	// 3rd Tuesday of January 2024.
	parentStart := time.Date(2024, 1, 16, 14, 0, 0, 0, time.UTC)
	rule := Rule{Freq: FreqMonthly, Interval: 1}

	anchor := parentStart
	for want := 2; want <= 6; want++ {
		var err error
		anchor, err = Next(anchor, rule.Freq, rule.Interval)
		require.NoError(t, err)

		got, ok := Ordinal(parentStart, rule, anchor, 0).Get()
		require.True(t, ok, "ordinal missing for %v", anchor)
		assert.Equal(t, want, got)
	}
}

func TestOrdinal_CapExhausted(t *testing.T) {
	parentStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{Freq: FreqDaily, Interval: 1}

	// 1000 days out is beyond the default cap of ~500 steps.
	farAnchor := parentStart.AddDate(0, 0, 1000)
	assert.True(t, Ordinal(parentStart, rule, farAnchor, 0).IsAbsent())
}

func TestOrdinal_MisconfiguredRule(t *testing.T) {
	parentStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{Freq: Frequency(42), Interval: 1}

	anchor := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	assert.True(t, Ordinal(parentStart, rule, anchor, 0).IsAbsent())
}
