package kit

import "context"

type ctxKey int

const (
	transportKey ctxKey = iota
	traceIDKey
	adminKey
)

// WithTransport tags ctx with the surface serving the call: "http" or "mcp".
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, transportKey, transport)
}

// GetTransport returns the transport of ctx, "http" when unset.
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey).(string); ok {
		return v
	}
	return "http"
}

// WithTraceID tags ctx with the request trace ID, echoed in logs and SQL traces.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithAdmin records the authenticated admin user name.
func WithAdmin(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, adminKey, user)
}

func GetAdmin(ctx context.Context) string {
	v, _ := ctx.Value(adminKey).(string)
	return v
}
