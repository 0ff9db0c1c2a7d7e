package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
)

func TestCSRF_IssuesTokenOnGet(t *testing.T) {
	var seen string
	h := mw.CSRF(mw.DefaultCSRFOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mw.CSRFToken(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "csrf_token" {
		t.Fatalf("Expected csrf_token cookie, got %v", cookies)
	}
	if seen == "" || seen != cookies[0].Value {
		t.Errorf("Expected context token %q to match cookie %q", seen, cookies[0].Value)
	}
	if !cookies[0].HttpOnly {
		t.Error("Expected HttpOnly cookie")
	}
}

func TestCSRF_ValidatesPost(t *testing.T) {
	h := mw.CSRF(mw.DefaultCSRFOptions())(okHandler)
	const token = "abc123"

	post := func(formToken, headerToken string, withCookie bool) int {
		form := url.Values{"isbn": {"9780134685991"}}
		if formToken != "" {
			form.Set(mw.CSRFFormField, formToken)
		}
		req := httptest.NewRequest("POST", "/books", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if headerToken != "" {
			req.Header.Set("X-CSRF-Token", headerToken)
		}
		if withCookie {
			req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := post(token, "", true); got != http.StatusOK {
		t.Errorf("form token: expected 200, got %d", got)
	}
	if got := post("", token, true); got != http.StatusOK {
		t.Errorf("header token: expected 200, got %d", got)
	}
	if got := post("wrong", "", true); got != http.StatusForbidden {
		t.Errorf("wrong token: expected 403, got %d", got)
	}
	if got := post(token, "", false); got != http.StatusForbidden {
		t.Errorf("no cookie: expected 403, got %d", got)
	}
	if got := post("", "", true); got != http.StatusForbidden {
		t.Errorf("no token: expected 403, got %d", got)
	}
}
