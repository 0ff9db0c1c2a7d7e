package middlewares

import "net/http"

// SecurityOptions tunes SecurityHeaders.
type SecurityOptions struct {
	// Strict adds COOP/COEP/CORP. They can break embeds unless every asset complies.
	Strict bool
}

// The form posts to itself and loads one same-origin stylesheet.
const contentSecurityPolicy = "default-src 'self'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"

func SecurityHeaders(opts SecurityOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")

			// HSTS only means something over HTTPS
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			}

			h.Set("Content-Security-Policy", contentSecurityPolicy)

			if opts.Strict {
				h.Set("Cross-Origin-Opener-Policy", "same-origin")
				h.Set("Cross-Origin-Embedder-Policy", "require-corp")
				h.Set("Cross-Origin-Resource-Policy", "same-origin")
			}

			// Clean server banner
			h.Set("Server", "")

			next.ServeHTTP(w, r)
		})
	}
}
