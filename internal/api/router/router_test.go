package router_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/5w1tchy/book-entry/internal/api/handlers/books"
	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
	"github.com/5w1tchy/book-entry/internal/api/router"
	"github.com/5w1tchy/book-entry/internal/render"
	"github.com/5w1tchy/book-entry/internal/storage/kv"
	catalog "github.com/5w1tchy/book-entry/internal/store/books"
	"github.com/5w1tchy/book-entry/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, limit mw.Limiter) *httptest.Server {
	t.Helper()
	c := catalog.New(kv.NewMemory(), catalog.Options{})
	h := router.Router(router.Deps{
		Books:      books.New(validate.Validator{}, c, render.Default()),
		Ready:      c,
		WriteLimit: limit,
		CSRF:       mw.DefaultCSRFOptions(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFormRoundTrip(t *testing.T) {
	srv := newServer(t, nil)

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var token string
	for _, c := range res.Cookies() {
		if c.Name == "csrf_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	form := url.Values{
		"isbn":           {"9780134685991"},
		"title":          {"Effective Java"},
		"price":          {"45.99"},
		"release-date":   {"2023-10-08"},
		mw.CSRFFormField: {token},
	}
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/books", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	// same post without the cookie is refused
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/books", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestAPIAndProbes(t *testing.T) {
	srv := newServer(t, nil)

	res, err := http.Post(srv.URL+"/api/books", "application/json", strings.NewReader(
		`{"isbn":"9780134685991","title":"Effective Java","price":"45.99","releaseDate":"2023-10-08"}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	for _, path := range []string{"/api/books", "/healthz", "/readyz"} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
	}

	res, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestWriteLimitOnlyGuardsWrites(t *testing.T) {
	tb := mw.NewMemoryTokenBucket(0.001, 1, mw.PerIPKey("tb"))
	t.Cleanup(tb.Close)
	srv := newServer(t, tb)

	post := func() int {
		res, err := http.Post(srv.URL+"/api/books", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}
	assert.Equal(t, http.StatusUnprocessableEntity, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	res, err := http.Get(srv.URL + "/api/books")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestOversizedFormIsTooLarge(t *testing.T) {
	c := catalog.New(kv.NewMemory(), catalog.Options{})
	h := mw.Chain(router.Router(router.Deps{
		Books: books.New(validate.Validator{}, c, render.Default()),
		Ready: c,
		CSRF:  mw.DefaultCSRFOptions(),
	}), mw.BodySizeLimit(64))

	form := url.Values{
		"isbn":           {"9780134685991"},
		"title":          {strings.Repeat("x", 500)},
		"price":          {"45.99"},
		"release-date":   {"2023-10-08"},
		mw.CSRFFormField: {"tok"},
	}
	for _, viaHeader := range []bool{false, true} {
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
		if viaHeader {
			req.Header.Set("X-CSRF-Token", "tok")
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, "csrf header=%t", viaHeader)
	}

	n, err := c.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}
