// Package calendar decides which days are valid trading days and normalizes
// requested date ranges against a market's schedule. The Calendar interface
// is deliberately small so fetch logic can be tested with a fake.
package calendar

import (
	"time"
)

// Calendar answers trading-day questions for one market.
type Calendar interface {
	// IsTradingDay reports whether the market is open on the given date.
	IsTradingDay(date time.Time) bool

	// PriorTradingDay returns the closest trading day at or before date.
	PriorTradingDay(date time.Time) time.Time

	// TradingDays returns every trading day in [start, end], ascending.
	TradingDays(start, end time.Time) []time.Time
}

// NYSE is a US equity trading calendar: weekends plus the fixed and floating
// federal market holidays. Early-close half days count as trading days.
type NYSE struct{}

// NewNYSE returns the US equity calendar.
func NewNYSE() *NYSE {
	return &NYSE{}
}

// IsTradingDay reports whether the NYSE is open on the given date.
func (c *NYSE) IsTradingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.isHoliday(date)
}

// PriorTradingDay walks backward to the closest trading day at or before date.
func (c *NYSE) PriorTradingDay(date time.Time) time.Time {
	d := truncate(date)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// TradingDays returns every NYSE trading day in [start, end], ascending.
// An inverted range yields nil.
func (c *NYSE) TradingDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := truncate(start); !d.After(truncate(end)); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

func (c *NYSE) isHoliday(date time.Time) bool {
	y, m, d := date.Year(), date.Month(), date.Day()

	// Fixed-date holidays with weekend observance shifts.
	for _, h := range []time.Time{
		observed(time.Date(y, time.January, 1, 0, 0, 0, 0, date.Location())),   // New Year's Day
		observed(time.Date(y, time.June, 19, 0, 0, 0, 0, date.Location())),     // Juneteenth
		observed(time.Date(y, time.July, 4, 0, 0, 0, 0, date.Location())),      // Independence Day
		observed(time.Date(y, time.December, 25, 0, 0, 0, 0, date.Location())), // Christmas
	} {
		if h.Month() == m && h.Day() == d {
			return true
		}
	}

	switch {
	case m == time.January && date.Weekday() == time.Monday && inNthWeek(d, 3): // MLK Day
		return true
	case m == time.February && date.Weekday() == time.Monday && inNthWeek(d, 3): // Presidents' Day
		return true
	case m == time.May && date.Weekday() == time.Monday && d > 24: // Memorial Day
		return true
	case m == time.September && date.Weekday() == time.Monday && inNthWeek(d, 1): // Labor Day
		return true
	case m == time.November && date.Weekday() == time.Thursday && inNthWeek(d, 4): // Thanksgiving
		return true
	}

	// Good Friday: two days before Easter Sunday.
	gf := easter(y).AddDate(0, 0, -2)
	return gf.Month() == m && gf.Day() == d
}

// observed shifts a weekend holiday to the adjacent weekday: Saturday back to
// Friday, Sunday forward to Monday.
func observed(h time.Time) time.Time {
	switch h.Weekday() {
	case time.Saturday:
		return h.AddDate(0, 0, -1)
	case time.Sunday:
		return h.AddDate(0, 0, 1)
	}
	return h
}

// inNthWeek reports whether a day of month falls in the nth weekday slot
// (1-based), e.g. the third Monday satisfies inNthWeek(d, 3).
func inNthWeek(day, n int) bool {
	return day > (n-1)*7 && day <= n*7
}

// easter computes Easter Sunday for a year using the anonymous Gregorian
// algorithm.
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
