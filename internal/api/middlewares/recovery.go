package middlewares

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/5w1tchy/book-entry/internal/api/apperr"
)

// Recovery turns a handler panic into a 500 problem and logs the stack.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			rid := GetRequestID(r)
			if rid == "" {
				rid = "unknown"
			}
			log.Printf("[PANIC] RequestID=%s URL=%s %s: %v\n%s",
				rid, r.Method, r.URL.Path, err, debug.Stack())

			// Don't expose internal errors to client
			apperr.WriteStatus(w, r, http.StatusInternalServerError, "Internal Server Error", "")
		}()
		next.ServeHTTP(w, r)
	})
}
