package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNYSE_IsTradingDay(t *testing.T) {
	cal := NewNYSE()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"regular weekday", date(2024, time.March, 6), true},
		{"saturday", date(2024, time.March, 9), false},
		{"sunday", date(2024, time.March, 10), false},
		{"new years day", date(2024, time.January, 1), false},
		{"mlk day third monday", date(2024, time.January, 15), false},
		{"presidents day", date(2024, time.February, 19), false},
		{"good friday 2024", date(2024, time.March, 29), false},
		{"memorial day", date(2024, time.May, 27), false},
		{"juneteenth", date(2024, time.June, 19), false},
		{"independence day", date(2024, time.July, 4), false},
		{"labor day", date(2024, time.September, 2), false},
		{"thanksgiving", date(2024, time.November, 28), false},
		{"christmas", date(2024, time.December, 25), false},
		{"day after christmas", date(2024, time.December, 26), true},
		{"july 4 observed on friday when saturday", date(2026, time.July, 3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsTradingDay(tt.date))
		})
	}
}

func TestNYSE_PriorTradingDay(t *testing.T) {
	cal := NewNYSE()

	tests := []struct {
		name string
		date time.Time
		want time.Time
	}{
		{"trading day maps to itself", date(2024, time.March, 6), date(2024, time.March, 6)},
		{"sunday clamps to friday", date(2024, time.March, 10), date(2024, time.March, 8)},
		{"holiday monday clamps to prior friday", date(2024, time.January, 15), date(2024, time.January, 12)},
		{"new years day clamps across year boundary", date(2024, time.January, 1), date(2023, time.December, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.PriorTradingDay(tt.date))
		})
	}
}

func TestNYSE_TradingDays(t *testing.T) {
	cal := NewNYSE()

	// The first full week of March 2024 has no holidays.
	days := cal.TradingDays(date(2024, time.March, 4), date(2024, time.March, 10))
	require.Len(t, days, 5)
	assert.Equal(t, date(2024, time.March, 4), days[0])
	assert.Equal(t, date(2024, time.March, 8), days[4])

	// A weekend-only range has zero trading days.
	assert.Empty(t, cal.TradingDays(date(2024, time.March, 9), date(2024, time.March, 10)))

	// Inverted range yields nothing.
	assert.Empty(t, cal.TradingDays(date(2024, time.March, 10), date(2024, time.March, 4)))
}

func TestEaster(t *testing.T) {
	assert.Equal(t, date(2024, time.March, 31), easter(2024))
	assert.Equal(t, date(2025, time.April, 20), easter(2025))
	assert.Equal(t, date(2026, time.April, 5), easter(2026))
}
