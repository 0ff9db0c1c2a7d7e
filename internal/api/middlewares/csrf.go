package middlewares

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/5w1tchy/book-entry/internal/api/apperr"
)

// CSRFFormField is the hidden form input carrying the token.
const CSRFFormField = "csrf_token"

type CSRFOptions struct {
	TokenHeader    string        // Default: "X-CSRF-Token"
	CookieName     string        // Default: "csrf_token"
	CookiePath     string        // Default: "/"
	CookieSecure   bool          // Set to true in production with HTTPS
	CookieSameSite http.SameSite // Default: SameSiteStrictMode
}

func DefaultCSRFOptions() CSRFOptions {
	return CSRFOptions{
		TokenHeader:    "X-CSRF-Token",
		CookieName:     "csrf_token",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteStrictMode,
	}
}

// CSRF is a double-submit cookie check. Safe methods get a token cookie
// (minted if missing) and the token in their context for the page to embed;
// unsafe methods must echo the cookie in the header or the form field.
func CSRF(opts CSRFOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(opts.CookieName)
			token := ""
			if err == nil {
				token = cookie.Value
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if token == "" {
					token = generateCSRFToken()
					http.SetCookie(w, &http.Cookie{
						Name:     opts.CookieName,
						Value:    token,
						Path:     opts.CookiePath,
						Secure:   opts.CookieSecure,
						HttpOnly: true,
						SameSite: opts.CookieSameSite,
					})
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyCSRFToken, token)))
				return
			}

			provided := r.Header.Get(opts.TokenHeader)
			if provided == "" {
				// traditional form post
				provided = r.PostFormValue(CSRFFormField)
			}
			if !isValidCSRFToken(token, provided) {
				apperr.WriteStatus(w, r, http.StatusForbidden, "Forbidden", "CSRF token validation failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyCSRFToken, token)))
		})
	}
}

// CSRFToken returns the token CSRF placed in ctx, or "" outside it.
func CSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyCSRFToken).(string)
	return v
}

func generateCSRFToken() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func isValidCSRFToken(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
