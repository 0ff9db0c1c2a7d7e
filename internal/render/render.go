// Package render turns a Book into display strings. It holds no validation
// or persistence logic.
package render

import (
	"fmt"

	"github.com/5w1tchy/book-entry/internal/models"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DateLayout is how release dates are shown.
const DateLayout = "January 2, 2006"

// View is the display form of one book.
type View struct {
	Title       string
	ISBN        string
	Price       string
	ReleaseDate string
}

// Renderer formats prices for one locale and currency.
type Renderer struct {
	printer *message.Printer
	unit    currency.Unit
}

// New parses a BCP 47 locale ("en-US") and an ISO 4217 code ("USD").
func New(locale, code string) (*Renderer, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("render: locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("render: currency %q: %w", code, err)
	}
	return &Renderer{printer: message.NewPrinter(tag), unit: unit}, nil
}

// Default renders en-US / USD.
func Default() *Renderer {
	return &Renderer{printer: message.NewPrinter(language.AmericanEnglish), unit: currency.USD}
}

// Price formats an amount with the currency symbol and two fraction digits.
func (r *Renderer) Price(amount float64) string {
	sym := r.printer.Sprint(currency.Symbol(r.unit))
	return sym + r.printer.Sprint(number.Decimal(amount, number.Scale(2)))
}

// Date shows the stored calendar day, whatever clock time the value carries.
func (r *Renderer) Date(b models.Book) string {
	return models.CalendarDay(b.Day()).Format(DateLayout)
}

func (r *Renderer) Summary(b models.Book) View {
	return View{
		Title:       b.Title,
		ISBN:        b.ISBN,
		Price:       r.Price(b.Price),
		ReleaseDate: r.Date(b),
	}
}

// Text is the one-line summary written into the display area.
func (r *Renderer) Text(b models.Book) string {
	v := r.Summary(b)
	return fmt.Sprintf("%s has an ISBN of %s, costs %s and releases on %s",
		v.Title, v.ISBN, v.Price, v.ReleaseDate)
}

// Summaries renders a list in order.
func (r *Renderer) Summaries(list []models.Book) []View {
	out := make([]View, len(list))
	for i, b := range list {
		out[i] = r.Summary(b)
	}
	return out
}
