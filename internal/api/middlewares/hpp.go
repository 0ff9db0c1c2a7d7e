package middlewares

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/5w1tchy/book-entry/internal/api/apperr"
)

// HPPOptions configures parameter-pollution filtering. Repeated parameters
// collapse to their first value; parameters not on the whitelist are dropped.
type HPPOptions struct {
	CheckQuery                  bool
	CheckBody                   bool
	CheckBodyOnlyForContentType string
	Whitelist                   []string
}

func HPP(opts HPPOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.CheckBody && r.Method == http.MethodPost && isCorrectContentType(r, opts.CheckBodyOnlyForContentType) {
				if err := filterBodyParams(r, opts.Whitelist); err != nil {
					writeParseError(w, r, err)
					return
				}
			}
			if opts.CheckQuery && r.URL.RawQuery != "" {
				filterQueryParams(r, opts.Whitelist)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isCorrectContentType(r *http.Request, contentType string) bool {
	return strings.Contains(r.Header.Get("Content-Type"), contentType)
}

// filterBodyParams parses the form itself, so a parse failure must be
// reported here: later ParseForm calls see the partial form and succeed.
func filterBodyParams(r *http.Request, whitelist []string) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	for k, v := range r.PostForm {
		if !slices.Contains(whitelist, k) {
			delete(r.PostForm, k)
			delete(r.Form, k)
			continue
		}
		if len(v) > 1 {
			r.PostForm.Set(k, v[0])
			r.Form.Set(k, v[0])
		}
	}
	return nil
}

func writeParseError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		apperr.WriteStatus(w, r, http.StatusRequestEntityTooLarge, "Payload Too Large", "form body too large")
		return
	}
	apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", "invalid form body")
}

func filterQueryParams(r *http.Request, whitelist []string) {
	query := r.URL.Query()
	for k, v := range query {
		if !slices.Contains(whitelist, k) {
			query.Del(k)
			continue
		}
		if len(v) > 1 {
			query.Set(k, v[0])
		}
	}
	r.URL.RawQuery = query.Encode()
}

// FormHPPOptions whitelists the book entry form's fields.
func FormHPPOptions() HPPOptions {
	return HPPOptions{
		CheckQuery:                  true,
		CheckBody:                   true,
		CheckBodyOnlyForContentType: "application/x-www-form-urlencoded",
		Whitelist: []string{
			"isbn", "title", "price", "release-date",
			CSRFFormField,
		},
	}
}
