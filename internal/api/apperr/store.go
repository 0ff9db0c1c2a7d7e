package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/5w1tchy/book-entry/internal/storage/kv"
	"github.com/5w1tchy/book-entry/internal/store/books"
	"github.com/5w1tchy/book-entry/internal/store/dbx"
)

// FromStore maps a catalog or backend error to a Problem. Details of
// unexpected errors are never exposed.
func FromStore(err error) Problem {
	switch {
	case errors.Is(err, books.ErrDuplicateISBN):
		return Problem{
			Status:      http.StatusConflict,
			Title:       "Conflict",
			FieldErrors: []FieldError{{Field: "isbn", Code: "unique", Message: "A book with this ISBN is already in the catalog"}},
		}
	case errors.Is(err, books.ErrCorrupt):
		return Problem{
			Status: http.StatusInternalServerError,
			Title:  "Catalog unreadable",
			Detail: "the stored catalog could not be decoded",
		}
	case errors.Is(err, kv.ErrConflict):
		return Problem{
			Status:    http.StatusConflict,
			Title:     "Conflict",
			Detail:    "too many concurrent writers, please retry",
			Retryable: true,
		}
	case dbx.Retryable(err):
		return Problem{
			Status:    http.StatusConflict,
			Title:     "Conflict",
			Detail:    "transaction conflict, please retry",
			Retryable: true,
		}
	case errors.Is(err, kv.ErrClosed),
		errors.Is(err, context.DeadlineExceeded):
		return Problem{
			Status:    http.StatusServiceUnavailable,
			Title:     "Service Unavailable",
			Detail:    "catalog backend unavailable",
			Retryable: true,
		}
	}
	return Problem{Status: http.StatusInternalServerError, Title: "Internal Server Error"}
}

// HandleStoreError maps err to a Problem and writes it. Returns true if handled.
func HandleStoreError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	Write(w, r, FromStore(err))
	return true
}
