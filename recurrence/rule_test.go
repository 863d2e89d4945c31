package recurrence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_IsForever(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		expected bool
	}{
		{"explicit never marker", Rule{Freq: FreqWeekly, Interval: 1, Never: true}, true},
		{"no count and no until", Rule{Freq: FreqWeekly, Interval: 1}, true},
		{"count-based", Rule{Freq: FreqWeekly, Interval: 1, Count: 12}, false},
		{"until-based", Rule{Freq: FreqDaily, Interval: 1, Until: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rule.IsForever())
		})
	}
}

func TestRule_EffectiveCutoff(t *testing.T) {
	until := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	override := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("none when forever and no override", func(t *testing.T) {
		rule := Rule{Freq: FreqWeekly, Interval: 1}
		assert.True(t, rule.EffectiveCutoff(mo.None[time.Time]()).IsAbsent())
	})

	t.Run("until alone", func(t *testing.T) {
		rule := Rule{Freq: FreqWeekly, Interval: 1, Until: until}
		got, ok := rule.EffectiveCutoff(mo.None[time.Time]()).Get()
		require.True(t, ok)
		assert.Equal(t, DateOnly(until), got)
	})

	t.Run("override alone", func(t *testing.T) {
		rule := Rule{Freq: FreqWeekly, Interval: 1}
		got, ok := rule.EffectiveCutoff(mo.Some(override)).Get()
		require.True(t, ok)
		assert.Equal(t, DateOnly(override), got)
	})

	t.Run("earliest of both wins", func(t *testing.T) {
		rule := Rule{Freq: FreqWeekly, Interval: 1, Until: until}
		got, ok := rule.EffectiveCutoff(mo.Some(override)).Get()
		require.True(t, ok)
		assert.Equal(t, DateOnly(override), got)
	})
}

func TestRule_Summary(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		expected string
	}{
		{
			"count reports total including parent",
			Rule{Freq: FreqWeekly, Interval: 2, Count: 5},
			"Repeats every 2 weeks • 6 occurrences",
		},
		{
			"forever",
			Rule{Freq: FreqMonthly, Interval: 1},
			"Repeats monthly • Forever",
		},
		{
			"until date",
			Rule{Freq: FreqDaily, Interval: 1, Until: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
			"Repeats daily • Until Mar 15, 2026",
		},
		{
			"yearly interval",
			Rule{Freq: FreqYearly, Interval: 3, Never: true},
			"Repeats every 3 years • Forever",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rule.Summary())
		})
	}
}

func TestParseRecord(t *testing.T) {
	count := 6
	untilGood := "2026-03-15"
	untilBad := "03/15/2026"
	never := "never"

	t.Run("count rule", func(t *testing.T) {
		rule, err := ParseRecord(Record{Type: "weekly", Interval: 2, Count: &count})
		require.NoError(t, err)
		assert.Equal(t, FreqWeekly, rule.Freq)
		assert.Equal(t, 2, rule.Interval)
		assert.Equal(t, 6, rule.Count)
		assert.False(t, rule.IsForever())
	})

	t.Run("until rule", func(t *testing.T) {
		rule, err := ParseRecord(Record{Type: "daily", Interval: 1, UntilDate: &untilGood})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), rule.Until)
	})

	t.Run("interval defaults to 1", func(t *testing.T) {
		rule, err := ParseRecord(Record{Type: "monthly"})
		require.NoError(t, err)
		assert.Equal(t, 1, rule.Interval)
	})

	t.Run("explicit never", func(t *testing.T) {
		rule, err := ParseRecord(Record{Type: "yearly", Interval: 1, End: &never})
		require.NoError(t, err)
		assert.True(t, rule.Never)
		assert.True(t, rule.IsForever())
	})

	t.Run("unknown type is a configuration error", func(t *testing.T) {
		_, err := ParseRecord(Record{Type: "fortnightly", Interval: 1})
		assert.Error(t, err)
	})

	t.Run("malformed until date is a configuration error", func(t *testing.T) {
		_, err := ParseRecord(Record{Type: "daily", Interval: 1, UntilDate: &untilBad})
		assert.Error(t, err)
	})

	t.Run("count and until are mutually exclusive", func(t *testing.T) {
		_, err := ParseRecord(Record{Type: "daily", Interval: 1, Count: &count, UntilDate: &untilGood})
		assert.Error(t, err)
	})
}

func TestRule_JSONRoundTrip(t *testing.T) {
	rule := Rule{Freq: FreqMonthly, Interval: 2, Count: 11}

	data, err := json.Marshal(rule)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"monthly","interval":2,"count":11,"until_date":null,"end":null}`, string(data))

	var decoded Rule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rule, decoded)
}
