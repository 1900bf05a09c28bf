package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/contactgain/internal/api"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		expected   string
	}{
		{
			name:     "single forwarded IP",
			xff:      "192.168.1.1",
			expected: "192.168.1.1",
		},
		{
			name:     "forwarded chain takes first",
			xff:      "203.0.113.1, 198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "forwarded chain with extra spaces",
			xff:      " 203.0.113.1  ,  198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "forwarded wins over real ip",
			xff:      "203.0.113.1",
			realIP:   "192.168.1.100",
			expected: "203.0.113.1",
		},
		{
			name:     "garbage forwarded header falls back to real ip",
			xff:      "not-an-ip",
			realIP:   "192.168.1.100",
			expected: "192.168.1.100",
		},
		{
			name:     "real ip",
			realIP:   "192.168.1.100",
			expected: "192.168.1.100",
		},
		{
			name:       "IPv4 remote addr with port",
			remoteAddr: "192.168.1.1:54321",
			expected:   "192.168.1.1",
		},
		{
			name:       "IPv6 remote addr with port",
			remoteAddr: "[2001:db8::1]:54321",
			expected:   "2001:db8::1",
		},
		{
			name:       "IPv4 mapped IPv6",
			remoteAddr: "[::ffff:10.0.0.7]:80",
			expected:   "10.0.0.7",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
		{
			name:       "unparseable remote addr is returned as is",
			remoteAddr: "pipe",
			expected:   "pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.remoteAddr != "" {
				r.RemoteAddr = tt.remoteAddr
			}

			require.Equal(t, tt.expected, ExtractClientIP(r))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	middleware := ClientIPMiddleware()

	var capturedIP string
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedIP = ClientIPFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "203.0.113.1", capturedIP)
}

func TestClientIPFromContext_missing(t *testing.T) {
	ctx := context.Background()

	ip := ClientIPFromContext(ctx)
	require.Empty(t, ip)
}

func TestCreatorIDMiddleware(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid uuid",
			header:   id.String(),
			expected: id.String(),
		},
		{
			name:     "upper case is canonicalised",
			header:   strings.ToUpper(id.String()),
			expected: id.String(),
		},
		{
			name:     "surrounding whitespace",
			header:   "  " + id.String() + " ",
			expected: id.String(),
		},
		{
			name:     "not a uuid",
			header:   "alice",
			expected: "",
		},
		{
			name:     "missing",
			header:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := CreatorIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = CreatorIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set(api.CreatorIDHeader, tt.header)
			}

			handler.ServeHTTP(w, r)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.expected, captured)
		})
	}
}
