// Package kit holds the plumbing shared by the HTTP and MCP surfaces:
// request context values, the Endpoint signature and MCP tool registration.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint handles one decoded request, whatever the transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Logging wraps an endpoint so each call is logged with its transport and
// duration: DEBUG on success, WARN on error.
func Logging(logger *slog.Logger, name string) func(Endpoint) Endpoint {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{"endpoint", name, "transport", GetTransport(ctx), "duration_ms", time.Since(start).Milliseconds()}
			if trace := GetTraceID(ctx); trace != "" {
				attrs = append(attrs, "trace_id", trace)
			}
			if err != nil {
				logger.Warn("kit: endpoint failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.Debug("kit: endpoint served", attrs...)
			return resp, nil
		}
	}
}
