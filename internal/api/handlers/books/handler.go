// Package books serves the book entry form and the catalog JSON API.
//
// The handler does no checking or storage of its own: a submitted form goes to
// the Validator, a valid Book is appended through the Catalog, and the
// Renderer turns it into the summary shown in the page.
package books

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/5w1tchy/book-entry/internal/models"
	"github.com/5w1tchy/book-entry/internal/render"
	"github.com/5w1tchy/book-entry/internal/validate"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type Validator interface {
	Validate(in validate.BookInput) (*models.Book, validate.FieldErrors)
}

type Catalog interface {
	Append(ctx context.Context, b models.Book) error
	List(ctx context.Context) ([]models.Book, error)
}

type Renderer interface {
	Text(b models.Book) string
	Summaries(list []models.Book) []render.View
}

type Handler struct {
	validator Validator
	catalog   Catalog
	render    Renderer
}

// New wires the form to its collaborators. v and c are required; a nil r
// formats prices as en-US / USD.
func New(v Validator, c Catalog, r Renderer) *Handler {
	if v == nil || c == nil {
		panic("books: New needs a validator and a catalog")
	}
	if r == nil {
		r = render.Default()
	}
	return &Handler{validator: v, catalog: c, render: r}
}

// Static serves the page's stylesheet.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

func requestID(r *http.Request) string {
	if rid := r.Header.Get("X-Request-ID"); rid != "" {
		return rid
	}
	return "unknown"
}

func logStoreError(r *http.Request, op string, err error) {
	log.Printf("[books] %s failed RequestID=%s: %v", op, requestID(r), err)
}
