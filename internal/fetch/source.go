// Package fetch retrieves raw price history from a market-data provider,
// wrapping provider calls with calendar-aware range normalization, shared
// rate limiting, and retry with exponential backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bullboard/pkg/contracts/domain"
)

// MarketDataSource abstracts the external provider. Implementations return
// raw OHLCV bars for a symbol and date range, or a *ProviderError describing
// why they could not.
type MarketDataSource interface {
	GetHistory(ctx context.Context, symbol domain.Symbol, start, end time.Time) ([]domain.PriceBar, error)
}

// ProviderErrorKind classifies provider failures into the two retry classes.
type ProviderErrorKind string

const (
	// ProviderErrorTransient covers timeouts, rate limits, and server-side
	// hiccups. Worth retrying.
	ProviderErrorTransient ProviderErrorKind = "transient"

	// ProviderErrorPermanent covers unknown symbols and malformed requests.
	// Retrying wastes budget and delays the caller.
	ProviderErrorPermanent ProviderErrorKind = "permanent"
)

// ProviderError is the tagged failure result of a MarketDataSource call.
// Retry logic branches on Kind, an explicit enumerated outcome.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error (%s): %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool {
	return e.Kind == ProviderErrorTransient
}

// Sentinel errors for the fetch outcome taxonomy. Callers test them with
// errors.Is against the *FetchError returned by Fetcher.Fetch.
var (
	// ErrInput marks invalid date ranges or symbols. Never retried.
	ErrInput = errors.New("invalid fetch input")

	// ErrFetchFailed marks a transient failure that survived every retry.
	ErrFetchFailed = errors.New("fetch failed after retries")

	// ErrPermanent marks a provider failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent fetch error")
)

// FetchError carries the failed symbol and the attempt count alongside the
// taxonomy sentinel, for diagnostics and failure reporting.
type FetchError struct {
	Symbol   domain.Symbol
	Attempts int
	Sentinel error
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v (symbol %s, %d attempts)", e.Sentinel, e.Err, e.Symbol, e.Attempts)
}

// Unwrap exposes the underlying cause chain.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the taxonomy sentinel so errors.Is(err, ErrFetchFailed) works.
func (e *FetchError) Is(target error) bool {
	return errors.Is(e.Sentinel, target)
}
