package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullboard/internal/config"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPSource(config.ProviderConfig{
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
	}, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestHTTPSource_GetHistory_DecodesBars(t *testing.T) {
	var gotQuery map[string]string
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"symbol": r.URL.Query().Get("symbol"),
			"start":  r.URL.Query().Get("start"),
			"end":    r.URL.Query().Get("end"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"symbol": "AAPL",
			"bars": [
				{"date": "2024-01-02", "open": 100, "high": 105, "low": 99, "close": 104, "volume": 1000},
				{"date": "2024-01-03", "open": 104, "high": 106, "low": 103, "close": 105, "volume": 1100}
			]
		}`))
	})

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := source.GetHistory(context.Background(), "AAPL", start, end)

	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 104.0, bars[0].Close)
	assert.Equal(t, int64(1100), bars[1].Volume)
	assert.Equal(t, start, bars[0].Date)
	assert.Equal(t, map[string]string{
		"symbol": "AAPL",
		"start":  "2024-01-02",
		"end":    "2024-01-03",
	}, gotQuery)
}

func TestHTTPSource_GetHistory_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ProviderErrorKind
	}{
		{name: "rate limited is transient", status: http.StatusTooManyRequests, wantKind: ProviderErrorTransient},
		{name: "unknown symbol is permanent", status: http.StatusNotFound, wantKind: ProviderErrorPermanent},
		{name: "server error is transient", status: http.StatusInternalServerError, wantKind: ProviderErrorTransient},
		{name: "bad gateway is transient", status: http.StatusBadGateway, wantKind: ProviderErrorTransient},
		{name: "forbidden is permanent", status: http.StatusForbidden, wantKind: ProviderErrorPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := source.GetHistory(context.Background(), "AAPL",
				time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.wantKind, provErr.Kind)
		})
	}
}

func TestHTTPSource_GetHistory_MalformedBodyIsTransient(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol": "AAPL", "bars": [`))
	})

	_, err := source.GetHistory(context.Background(), "AAPL",
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.Transient())
}

func TestHTTPSource_GetHistory_SkipsUnparseableDates(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"symbol": "AAPL",
			"bars": [
				{"date": "not-a-date", "open": 1, "high": 1, "low": 1, "close": 1, "volume": 1},
				{"date": "2024-01-03", "open": 104, "high": 106, "low": 103, "close": 105, "volume": 1100}
			]
		}`))
	})

	bars, err := source.GetHistory(context.Background(), "AAPL",
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 105.0, bars[0].Close)
}

func TestHTTPSource_GetHistory_ContextCancellation(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := source.GetHistory(ctx, "AAPL",
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.Transient())
}
