package domain

import (
	"fmt"
	"strings"
	"time"
)

// Symbol is a case-normalized ticker identifier.
type Symbol string

// NewSymbol normalizes a raw ticker string into a Symbol.
func NewSymbol(raw string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(raw)))
}

// String returns the symbol as a plain string.
func (s Symbol) String() string {
	return string(s)
}

// PriceBar represents one trading-day OHLCV observation for a symbol.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open" validate:"gt=0"`
	High   float64   `json:"high" validate:"gt=0"`
	Low    float64   `json:"low" validate:"gt=0"`
	Close  float64   `json:"close" validate:"gt=0"`
	Volume int64     `json:"volume" validate:"min=0"`
}

// Validate checks the OHLC ordering invariant and volume sign.
// A valid bar satisfies low <= min(open, close) <= max(open, close) <= high.
func (b PriceBar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("non-positive price on %s", b.Date.Format("2006-01-02"))
	}
	if b.Volume < 0 {
		return fmt.Errorf("negative volume on %s", b.Date.Format("2006-01-02"))
	}
	lo, hi := b.Open, b.Open
	if b.Close < lo {
		lo = b.Close
	}
	if b.Close > hi {
		hi = b.Close
	}
	if b.Low > lo || hi > b.High {
		return fmt.Errorf("OHLC ordering violated on %s: low=%g open=%g close=%g high=%g",
			b.Date.Format("2006-01-02"), b.Low, b.Open, b.Close, b.High)
	}
	return nil
}

// RawSeries is the ordered sequence of bars returned by a data source for one
// symbol over a requested date range. It may still contain duplicates or
// out-of-range dates; cleaning is the validator's job.
type RawSeries struct {
	Symbol Symbol     `json:"symbol"`
	Start  time.Time  `json:"start"`
	End    time.Time  `json:"end"`
	Bars   []PriceBar `json:"bars"`

	// Attempts records how many provider calls were made to obtain the
	// series, including the successful one. Diagnostic only.
	Attempts int `json:"attempts"`
}

// Len returns the number of bars in the series.
func (s RawSeries) Len() int {
	return len(s.Bars)
}
