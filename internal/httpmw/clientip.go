package httpmw

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions configures proxy trust.
type ClientIPOptions struct {
	// TrustedHops is the number of reverse proxies in front of the server
	// that append to X-Forwarded-For. Zero trusts no forwarding headers.
	TrustedHops int
}

// ClientIP trusts no proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions resolves the client address and stores it in the
// context. Forwarding headers are stripped whenever they are not trusted so
// later middleware cannot read spoofed values.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractRealClientAddr(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

func stripForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

// extractRealClientAddr picks the entry TrustedHops from the right of
// X-Forwarded-For, but only when the direct peer is a private address.
func extractRealClientAddr(r *http.Request, trustedHops int) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		stripForwarded(r)
		return "0.0.0.0"
	}
	peer = peer.Unmap()

	trusted := trustedHops > 0 && (peer.IsPrivate() || peer.IsLoopback())
	if !trusted {
		stripForwarded(r)
		return peer.String()
	}

	xf := r.Header.Get("X-Forwarded-For")
	if xf == "" {
		return peer.String()
	}
	parts := strings.Split(xf, ",")
	idx := len(parts) - trustedHops
	if idx < 0 {
		stripForwarded(r)
		return peer.String()
	}
	candidate, err := netip.ParseAddr(strings.TrimSpace(parts[idx]))
	if err != nil {
		return peer.String()
	}
	return candidate.Unmap().String()
}

// ClientIPFromContext returns the resolved client address or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
