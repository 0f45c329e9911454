package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// EnsureTraceID returns a context carrying a trace ID, generating one when
// absent. Entry points that start work outside an HTTP request (cron jobs,
// CLI runs) use it so their log records stay correlated.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, uuid.New().String())
	}
	return ctx
}
