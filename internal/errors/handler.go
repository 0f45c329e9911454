package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bullboard/internal/fetch"
	"bullboard/internal/pipeline"
	"bullboard/internal/services"
)

// ErrorHandler provides centralized error handling: every error leaving a
// handler is converted to RFC 7807 Problem Details with the request trace ID
// attached.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler. includeStack attaches stack
// traces to responses and should stay off outside development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem maps the pipeline error taxonomy onto RFC 7807 Problem
// Details. Unknown errors become opaque 500s; internals never leak.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var jsonSyntax *json.SyntaxError
	var jsonType *json.UnmarshalTypeError

	switch {
	case errors.As(err, &jsonSyntax), errors.As(err, &jsonType),
		errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Malformed Request Body",
			"The request body is not valid JSON",
			r.URL.Path,
		)

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)

	case errors.Is(err, pipeline.ErrNoSymbols):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeNoSymbols,
			"No Symbols",
			"The request contains no symbols to process",
			r.URL.Path,
		)

	case errors.Is(err, services.ErrNoRun), errors.Is(err, services.ErrSymbolNotInRun):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeRunNotFound,
			"Run Not Found",
			err.Error(),
			r.URL.Path,
		)

	case errors.Is(err, fetch.ErrInput):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeInvalidRange,
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		)

	case errors.Is(err, fetch.ErrPermanent):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeUnknownSymbol,
			"Provider Rejected Request",
			err.Error(),
			r.URL.Path,
		)

	case errors.Is(err, fetch.ErrFetchFailed):
		return NewProblemDetails(
			http.StatusBadGateway,
			TypeProviderDown,
			"Provider Unavailable",
			"The market data provider did not answer after retries",
			r.URL.Path,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

// HandlePanic recovers from panics and returns an RFC 7807 error.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// Middleware recovers panics raised by downstream handlers.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.HandlePanic(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// getStackTrace returns the current stack trace.
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
