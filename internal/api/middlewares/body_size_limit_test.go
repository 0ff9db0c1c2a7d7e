package middlewares_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
)

var readAllHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, err := io.ReadAll(r.Body)
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func TestBodySizeLimit_AcceptsSmallBodies(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader("small body"))
	rec := httptest.NewRecorder()
	mw.BodySizeLimit(64)(readAllHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestBodySizeLimit_RejectsLargeBodies(t *testing.T) {
	for _, method := range []string{"POST", "PUT", "PATCH"} {
		req := httptest.NewRequest(method, "/test", bytes.NewReader(bytes.Repeat([]byte("a"), 65)))
		rec := httptest.NewRecorder()
		mw.BodySizeLimit(64)(readAllHandler).ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("%s: expected 413, got %d", method, rec.Code)
		}
	}
}

func TestBodySizeLimit_OnlyAppliesToMutatingMethods(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", strings.NewReader(strings.Repeat("x", 100)))
	rec := httptest.NewRecorder()
	mw.BodySizeLimit(64)(readAllHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for GET, got %d", rec.Code)
	}
}

func TestBodySizeLimit_DefaultLimit(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader(bytes.Repeat([]byte("a"), int(mw.DefaultMaxBodySize)+1)))
	rec := httptest.NewRecorder()
	mw.BodySizeLimit(0)(readAllHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 past the default limit, got %d", rec.Code)
	}
}
