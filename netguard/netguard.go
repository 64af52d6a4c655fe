// Package netguard screens what users hand to the server before it is
// used: attachment locators that the exporter will download, response
// bodies read into memory and the names of uploaded files.
package netguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"net/url"
	"path"
	"strings"
)

var (
	// ErrSSRF means the locator points into a private, loopback or
	// link-local network.
	ErrSSRF = errors.New("netguard: URL targets a private or loopback address")
	// ErrUnsafeScheme means the locator is not http or https.
	ErrUnsafeScheme = errors.New("netguard: only http and https schemes are allowed")
	// ErrTooLarge means a body went over its read limit.
	ErrTooLarge = errors.New("netguard: body too large")
)

// Ranges not covered by netip.Addr's own predicates.
var internalRanges = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("0.0.0.0/8"),
}

// Internal reports whether addr must not be reached from a public
// locator.
func Internal(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return true
	}
	for _, p := range internalRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ValidateURL accepts http(s) locators whose host is public. Hostnames are
// resolved and refused when any address is internal. A lookup failure is
// let through: the download fails on its own with a clearer error.
func ValidateURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("netguard: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("netguard: URL has no host")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if Internal(addr) {
			return ErrSSRF
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if Internal(addr) {
			return fmt.Errorf("%w: %s resolves to %s", ErrSSRF, host, addr)
		}
	}
	return nil
}

// LimitedReadAll reads r to the end, failing with ErrTooLarge once more
// than limit bytes arrive.
func LimitedReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	switch {
	case err != nil:
		return nil, err
	case int64(len(data)) > limit:
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// SafeExt is the lower-case extension of an uploaded file name, kept only
// when it is 1 to 9 ASCII letters or digits. Anything else yields "".
func SafeExt(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, `\`, "/")))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	if strings.IndexFunc(ext[1:], func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}) >= 0 {
		return ""
	}
	return ext
}
