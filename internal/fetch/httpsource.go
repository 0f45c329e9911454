package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"bullboard/internal/config"
	"bullboard/pkg/contracts/domain"
)

// HTTPSource is a MarketDataSource over a JSON REST history endpoint:
// GET {base}/history?symbol=AAPL&start=2024-01-02&end=2024-06-28.
// Retry scheduling lives in the Fetcher; this type only performs single calls
// and classifies their failures.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSource creates an HTTP-backed market data source.
func NewHTTPSource(cfg config.ProviderConfig, logger *slog.Logger) *HTTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger.With(slog.String("component", "http_source")),
	}
}

type barPayload struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type historyPayload struct {
	Symbol string       `json:"symbol"`
	Bars   []barPayload `json:"bars"`
}

// GetHistory fetches raw daily bars for the symbol. HTTP 4xx answers (except
// 429) are permanent; 429, 5xx, and transport errors are transient.
func (s *HTTPSource) GetHistory(ctx context.Context, symbol domain.Symbol, start, end time.Time) ([]domain.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/history?%s", s.baseURL, url.Values{
		"symbol": {symbol.String()},
		"start":  {start.Format("2006-01-02")},
		"end":    {end.Format("2006-01-02")},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Kind: ProviderErrorPermanent, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: ProviderErrorTransient, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &ProviderError{Kind: ProviderErrorTransient, Message: "read response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &ProviderError{Kind: ProviderErrorTransient, Message: "rate limited"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &ProviderError{Kind: ProviderErrorPermanent, Message: fmt.Sprintf("unknown symbol %s", symbol)}
	case resp.StatusCode >= 500:
		return nil, &ProviderError{Kind: ProviderErrorTransient, Message: fmt.Sprintf("server error %d", resp.StatusCode)}
	default:
		return nil, &ProviderError{Kind: ProviderErrorPermanent, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var payload historyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ProviderError{Kind: ProviderErrorTransient, Message: "decode response", Err: err}
	}

	bars := make([]domain.PriceBar, 0, len(payload.Bars))
	for _, raw := range payload.Bars {
		date, err := time.Parse("2006-01-02", raw.Date)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping bar with unparseable date",
				slog.String("symbol", symbol.String()),
				slog.String("date", raw.Date))
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date:   date,
			Open:   raw.Open,
			High:   raw.High,
			Low:    raw.Low,
			Close:  raw.Close,
			Volume: raw.Volume,
		})
	}
	return bars, nil
}
