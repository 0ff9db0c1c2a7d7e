package router

import (
	"net/http"
	"time"

	"github.com/5w1tchy/book-entry/internal/api/handlers"
	"github.com/5w1tchy/book-entry/internal/api/handlers/books"
	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
)

// Deps is what the routes need. WriteLimit guards every route that appends
// to the catalog; nil means no limit.
type Deps struct {
	Books        *books.Handler
	Ready        handlers.Pinger
	WriteLimit   mw.Limiter
	CSRF         mw.CSRFOptions
	CORSOrigins  []string
	ReadyTimeout time.Duration
}

func Router(d Deps) http.Handler {
	mux := http.NewServeMux()

	writes := func(h http.Handler) http.Handler {
		if d.WriteLimit == nil {
			return h
		}
		return d.WriteLimit.Middleware(h)
	}

	// Form page; CSRF protects the post, HPP keeps one value per field
	csrf := mw.CSRF(d.CSRF)
	mux.Handle("GET /{$}", csrf(http.HandlerFunc(d.Books.Form)))
	mux.Handle("POST /books", mw.Chain(http.HandlerFunc(d.Books.Submit),
		writes, mw.HPP(mw.FormHPPOptions()), csrf))
	mux.Handle("GET /static/", books.Static())

	// JSON API
	cors := mw.CORS(d.CORSOrigins)
	mux.Handle("GET /api/books", cors(http.HandlerFunc(d.Books.List)))
	mux.Handle("POST /api/books", cors(writes(http.HandlerFunc(d.Books.Create))))
	mux.Handle("OPTIONS /api/books", cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})))

	// Probes
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	timeout := d.ReadyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	mux.Handle("GET /readyz", handlers.Readyz(d.Ready, timeout))

	return mux
}
