package books

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"github.com/5w1tchy/book-entry/internal/api/apperr"
	"github.com/5w1tchy/book-entry/internal/api/middlewares"
	"github.com/5w1tchy/book-entry/internal/render"
	"github.com/5w1tchy/book-entry/internal/validate"
)

// page is the data behind templates/form.html.
type page struct {
	Values  validate.BookInput
	Errors  validate.FieldErrors
	Display string // summary of the book just added
	Alert   string // catalog-level failure, shown above the form
	Books   []render.View

	CSRFToken string
}

// Form serves the empty entry form with the current catalog.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	p := page{}
	status := h.loadCatalog(r, &p, http.StatusOK)
	h.writePage(w, r, status, p)
}

// Submit handles the form post. Every field is checked on every attempt and
// the page only ever shows the messages from this attempt.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			apperr.WriteStatus(w, r, http.StatusRequestEntityTooLarge, "Payload Too Large", "form body too large")
			return
		}
		apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", "invalid form body")
		return
	}

	in := validate.BookInput{
		ISBN:        r.PostForm.Get(validate.FieldISBN),
		Title:       r.PostForm.Get(validate.FieldTitle),
		Price:       r.PostForm.Get(validate.FieldPrice),
		ReleaseDate: r.PostForm.Get(validate.FieldReleaseDate),
	}

	book, errs := h.validator.Validate(in)
	if len(errs) > 0 {
		p := page{Values: in, Errors: errs}
		h.loadCatalog(r, &p, 0)
		h.writePage(w, r, http.StatusUnprocessableEntity, p)
		return
	}

	if err := h.catalog.Append(r.Context(), *book); err != nil {
		logStoreError(r, "append", err)
		prob := apperr.FromStore(err)
		p := page{Values: in, Errors: validate.FieldErrors{}}
		for _, fe := range prob.FieldErrors {
			p.Errors[fe.Field] = fe.Message
		}
		if len(p.Errors) == 0 {
			p.Alert = alertText(prob)
		}
		h.loadCatalog(r, &p, 0)
		h.writePage(w, r, prob.Status, p)
		return
	}

	p := page{Display: h.render.Text(*book)}
	status := h.loadCatalog(r, &p, http.StatusCreated)
	h.writePage(w, r, status, p)
}

// loadCatalog fills p.Books. On failure it sets p.Alert and returns the
// error status; otherwise it returns ok.
func (h *Handler) loadCatalog(r *http.Request, p *page, ok int) int {
	list, err := h.catalog.List(r.Context())
	if err != nil {
		logStoreError(r, "list", err)
		prob := apperr.FromStore(err)
		if p.Alert == "" {
			p.Alert = alertText(prob)
		}
		if ok == 0 {
			return 0
		}
		return prob.Status
	}
	p.Books = h.render.Summaries(list)
	return ok
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, p page) {
	p.CSRFToken = middlewares.CSRFToken(r.Context())

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		log.Printf("[books] render page: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func alertText(p apperr.Problem) string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}
