package http

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/contactgain/internal/api"
)

type contextKey string

const (
	clientIPContextKey  contextKey = "client_ip"
	creatorIDContextKey contextKey = "creator_id"
)

// ExtractClientIP returns the client address for logging. The first entry of
// X-Forwarded-For wins, then X-Real-IP, then RemoteAddr. Header values that do
// not parse as an IP address are skipped.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, ok := parseAddr(first); ok {
			return addr
		}
	}

	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if addr, ok := parseAddr(host); ok {
		return addr
	}
	return host
}

func parseAddr(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

// ClientIPFromContext extracts the client IP from the request context.
// This should be called from handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware is a middleware that extracts and stores the client IP in the request context.
// This allows the IP to be used in request logging.
func ClientIPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ExtractClientIP(r)
			ctx := context.WithValue(r.Context(), clientIPContextKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CreatorIDFromContext returns the canonical creator UUID stored by CreatorIDMiddleware,
// or an empty string when the request carried none or an invalid one.
func CreatorIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(creatorIDContextKey).(string)
	return id
}

// WithCreatorID returns a copy of ctx carrying the creator identity.
func WithCreatorID(ctx context.Context, creatorID string) context.Context {
	return context.WithValue(ctx, creatorIDContextKey, creatorID)
}

// CreatorIDMiddleware parses the X-Creator-ID header and stores the canonical
// UUID string in the request context. Values that are not UUIDs are dropped,
// so handlers that require an identity reject them the same as a missing header.
func CreatorIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(api.CreatorIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCreatorID(r.Context(), id.String())))
		})
	}
}
