package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullboard/internal/fetch"
	"bullboard/internal/pipeline"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError_Taxonomy(t *testing.T) {
	h := NewErrorHandler(nil, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"no symbols", pipeline.ErrNoSymbols, http.StatusBadRequest, TypeNoSymbols},
		{"invalid input", fmt.Errorf("run: %w", fetch.ErrInput), http.StatusBadRequest, TypeInvalidRange},
		{"unknown symbol", &fetch.FetchError{Symbol: "ZZZZ", Sentinel: fetch.ErrPermanent}, http.StatusUnprocessableEntity, TypeUnknownSymbol},
		{"provider down", &fetch.FetchError{Symbol: "AAPL", Attempts: 4, Sentinel: fetch.ErrFetchFailed}, http.StatusBadGateway, TypeProviderDown},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"malformed json", json.Unmarshal([]byte(`{"symbols":`), &map[string]interface{}{}), http.StatusBadRequest, TypeValidation},
		{"json type mismatch", json.Unmarshal([]byte(`{"symbols":"AAPL"}`), &struct{ Symbols []string }{}), http.StatusBadRequest, TypeValidation},
		{"truncated body", io.ErrUnexpectedEOF, http.StatusBadRequest, TypeValidation},
		{"unknown error", fmt.Errorf("something odd"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analytics/run", nil)
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
		})
	}
}

func TestHandleError_NeverLeaksInternals(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"))

	body := decodeProblem(t, rec)
	assert.NotContains(t, body["detail"], "10.0.0.5")
	assert.NotContains(t, rec.Body.String(), "stack")
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	h := NewErrorHandler(nil, false)
	handler := h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(nil, false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
