package books

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/5w1tchy/book-entry/internal/api/apperr"
	"github.com/5w1tchy/book-entry/internal/api/httpx"
	"github.com/5w1tchy/book-entry/internal/models"
	"github.com/5w1tchy/book-entry/internal/validate"
	json "github.com/goccy/go-json"
)

// field accepts a JSON string or a bare number and keeps its text, so that
// {"price": 45.99} and {"price": "45.99"} go through the same checks.
type field string

func (f *field) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = field(s)
		return nil
	}
	if len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')) {
		*f = field(b)
		return nil
	}
	return fmt.Errorf("expected a string or number, got %s", b)
}

type createRequest struct {
	ISBN        field `json:"isbn"`
	Title       field `json:"title"`
	Price       field `json:"price"`
	ReleaseDate field `json:"releaseDate"`
}

// List returns the catalog in insertion order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context())
	if err != nil {
		logStoreError(r, "list", err)
		apperr.HandleStoreError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Book{}
	}
	httpx.List(w, list)
}

// Create validates a JSON book and appends it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body createRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			apperr.WriteStatus(w, r, http.StatusRequestEntityTooLarge, "Payload Too Large", "body too large")
		case errors.Is(err, httpx.ErrUnsupportedMedia):
			apperr.WriteStatus(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", err.Error())
		default:
			apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", "invalid JSON")
		}
		return
	}

	book, errs := h.validator.Validate(validate.BookInput{
		ISBN:        string(body.ISBN),
		Title:       string(body.Title),
		Price:       string(body.Price),
		ReleaseDate: string(body.ReleaseDate),
	})
	if len(errs) > 0 {
		apperr.Write(w, r, apperr.Invalid(errs.Fields(), errs))
		return
	}

	if err := h.catalog.Append(r.Context(), *book); err != nil {
		logStoreError(r, "append", err)
		apperr.HandleStoreError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"data":    book,
		"summary": h.render.Text(*book),
	})
}
