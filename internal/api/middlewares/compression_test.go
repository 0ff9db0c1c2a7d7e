package middlewares_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
	"github.com/klauspost/compress/gzip"
)

var pageHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(strings.Repeat("<p>book</p>", 200)))
})

func TestCompression_Gzips(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "br, gzip;q=0.8")
	rec := httptest.NewRecorder()
	mw.Compression(pageHandler).ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Expected gzip encoding, got %q", got)
	}
	if rec.Header().Get("Vary") != "Accept-Encoding" {
		t.Errorf("Expected Vary: Accept-Encoding, got %q", rec.Header().Get("Vary"))
	}

	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != strings.Repeat("<p>book</p>", 200) {
		t.Error("Decompressed body does not match")
	}
}

func TestCompression_Skips(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		accept  string
		handler http.Handler
	}{
		{"no accept-encoding", "GET", "", pageHandler},
		{"gzip refused", "GET", "gzip;q=0", pageHandler},
		{"head", "HEAD", "gzip", pageHandler},
		{"no content", "GET", "gzip", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			rec := httptest.NewRecorder()
			mw.Compression(tt.handler).ServeHTTP(rec, req)

			if got := rec.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("Expected no encoding, got %q", got)
			}
		})
	}
}

func TestCompression_PartialContentPassesThrough(t *testing.T) {
	content := strings.Repeat("body{margin:0}", 100)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "form.css", time.Time{}, bytes.NewReader([]byte(content)))
	})

	req := httptest.NewRequest("GET", "/static/form.css", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Range", "bytes=0-9")
	rec := httptest.NewRecorder()
	mw.Compression(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("Expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Expected no encoding on a range response, got %q", got)
	}
	if rec.Body.String() != content[:10] {
		t.Errorf("Expected raw range bytes, got %q", rec.Body.String())
	}
}
