package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/5w1tchy/book-entry/internal/api/httpx"
)

// Pinger is anything whose readiness can be probed, usually the catalog.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, map[string]string{"state": "ok"})
}

// Readyz reports whether the catalog backend answers within timeout.
func Readyz(p Pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Printf("[readyz] backend ping failed: %v", err)
			httpx.ErrorJSON(w, http.StatusServiceUnavailable, "catalog backend unavailable")
			return
		}
		httpx.OK(w, map[string]string{"state": "ready"})
	}
}
