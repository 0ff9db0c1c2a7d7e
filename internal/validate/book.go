package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/5w1tchy/book-entry/internal/models"
	"github.com/go-playground/validator/v10"
)

// Field ids, shared with the form markup.
const (
	FieldISBN        = "isbn"
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldReleaseDate = "release-date"
)

// User-facing messages, one per failure kind.
const (
	MsgISBN        = "ISBN must be 13 digits only"
	MsgTitle       = "You must provide a title"
	MsgPrice       = "Price must be a positive number"
	MsgReleaseDate = "Release date must be a valid date"
)

// BookInput holds the raw strings typed into the form.
type BookInput struct {
	ISBN        string `form:"isbn" json:"isbn" validate:"isbn13"`
	Title       string `form:"title" json:"title" validate:"notblank"`
	Price       string `form:"price" json:"price" validate:"price"`
	ReleaseDate string `form:"release-date" json:"releaseDate" validate:"calendardate"`
}

// FieldErrors maps a field id to its message. A nil or empty map means the
// input was valid.
type FieldErrors map[string]string

// Fields returns the invalid field ids in form order.
func (fe FieldErrors) Fields() []string {
	var out []string
	for _, f := range []string{FieldISBN, FieldTitle, FieldPrice, FieldReleaseDate} {
		if _, ok := fe[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

var tagMessages = map[string]string{
	"isbn13":       MsgISBN,
	"notblank":     MsgTitle,
	"price":        MsgPrice,
	"calendardate": MsgReleaseDate,
}

var engine *validator.Validate

func init() {
	engine = validator.New()

	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	engine.RegisterValidation("isbn13", func(fl validator.FieldLevel) bool {
		return ISBN13(fl.Field().String())
	})
	engine.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		_, ok := Title(fl.Field().String())
		return ok
	})
	engine.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, ok := Price(fl.Field().String())
		return ok
	})
	engine.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, ok := ReleaseDate(fl.Field().String())
		return ok
	})
}

// Book checks all four fields and builds a Book only when every one passes.
// Every field is checked on every call; the returned FieldErrors is new each
// time so messages from an earlier attempt never carry over.
func Book(in BookInput) (*models.Book, FieldErrors) {
	errs := FieldErrors{}

	err := engine.Struct(in)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			// Only reachable with a non-struct argument.
			panic(err)
		}
		for _, fe := range verrs {
			msg, ok := tagMessages[fe.Tag()]
			if !ok {
				msg = fe.Field() + " is invalid"
			}
			errs[fe.Field()] = msg
		}
		return nil, errs
	}

	title, _ := Title(in.Title)
	price, _ := Price(in.Price)
	released, _ := ReleaseDate(in.ReleaseDate)

	return &models.Book{
		ISBN:        in.ISBN,
		Title:       title,
		Price:       price,
		ReleaseDate: released,
	}, errs
}

// Validator adapts Book to an interface handlers can take as a dependency.
type Validator struct{}

// Validate implements the handler-side contract.
func (Validator) Validate(in BookInput) (*models.Book, FieldErrors) {
	return Book(in)
}
