package shield

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/hazyhaar/hojadevida/idgen"
	"github.com/hazyhaar/hojadevida/kit"
)

type loggerKey struct{}

// RequestTrace gives each request a trace ID, returned in X-Trace-ID, and a
// logger that carries it. The client address is resolved once here through
// proxies and read back with ClientIP.
func RequestTrace(proxies Proxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := idgen.Trace()
			ip := proxies.ClientIP(r)
			w.Header().Set("X-Trace-ID", id)

			logger := slog.Default().With(
				slog.String("trace_id", id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("ip", ip),
			)
			logger.Debug("shield: request")

			ctx := kit.WithTraceID(r.Context(), id)
			ctx = withClientIP(ctx, ip)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request logger set by RequestTrace, or the default
// logger outside a traced request.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// HeadToGet routes HEAD to the GET handlers; net/http discards the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}

// MaxFormBody caps url-encoded and JSON bodies at limit bytes. Multipart
// requests are left alone: the upload handlers apply their own cap.
func MaxFormBody(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			switch mt {
			case "application/x-www-form-urlencoded", "application/json":
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
