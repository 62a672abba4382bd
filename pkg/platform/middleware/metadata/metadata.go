package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"idregistry/pkg/requestcontext"
)

const maxUserAgentLen = 256

// ClientMetadata extracts the client IP address and a summarized User-Agent
// from the request and stores them in the request context.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(),
			ClientIPFromRequest(r),
			DescribeUserAgent(r.Header.Get("User-Agent")),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DescribeUserAgent reduces a raw User-Agent header to "browser version (os)"
// so audit records stay short and comparable. Unparseable agents are kept
// verbatim, truncated.
func DescribeUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return truncate(raw)
	}

	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" ")
		b.WriteString(version)
	}
	if osName := ua.OS(); osName != "" {
		b.WriteString(" (")
		b.WriteString(osName)
		b.WriteString(")")
	}
	if ua.Bot() {
		b.WriteString(" [bot]")
	}
	return truncate(b.String())
}

func truncate(s string) string {
	if len(s) > maxUserAgentLen {
		return s[:maxUserAgentLen]
	}
	return s
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port", or "[::1]:port" for IPv6
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
