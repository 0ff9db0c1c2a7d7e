package middlewares_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()
	mw.SecurityHeaders(mw.SecurityOptions{})(okHandler).ServeHTTP(rec, req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "1; mode=block"},
		{"Referrer-Policy", "no-referrer"},
		{"Content-Security-Policy", "default-src 'self'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"},
		{"Cross-Origin-Opener-Policy", ""},
		{"Strict-Transport-Security", ""},
	}
	for _, tt := range tests {
		if got := rec.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: expected %q, got %q", tt.header, tt.expected, got)
		}
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("Expected Cache-Control header")
	}
}

func TestSecurityHeaders_Strict(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()
	mw.SecurityHeaders(mw.SecurityOptions{Strict: true})(okHandler).ServeHTTP(rec, req)

	for _, h := range []string{"Cross-Origin-Opener-Policy", "Cross-Origin-Embedder-Policy", "Cross-Origin-Resource-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("Expected %s in strict mode", h)
		}
	}
}

func TestSecurityHeaders_HSTS_OverHTTPS(t *testing.T) {
	req := httptest.NewRequest("GET", "https://example.com/test", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	mw.SecurityHeaders(mw.SecurityOptions{})(okHandler).ServeHTTP(rec, req)

	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("Expected HSTS over TLS")
	}
}
