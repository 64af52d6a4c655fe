package shield

import "net/http"

// Header is one response header.
type Header struct {
	Name  string
	Value string
}

// SiteHeaders is the hardening set of the CV site. Certificate previews and
// listing photos are hosted elsewhere, hence https: images; the exported
// PDF is only framed by the site itself.
func SiteHeaders() []Header {
	return []Header{
		{"Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; frame-src 'self'; frame-ancestors 'self'"},
		{"X-Frame-Options", "SAMEORIGIN"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	}
}

// SecurityHeaders sets headers on every response before the handler runs,
// so handlers may still override one. Headers with an empty value are
// skipped.
func SecurityHeaders(headers []Header) Middleware {
	set := make([]Header, 0, len(headers))
	for _, h := range headers {
		if h.Value != "" {
			set = append(set, h)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range set {
				w.Header().Set(h.Name, h.Value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
