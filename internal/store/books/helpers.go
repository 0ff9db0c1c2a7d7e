package books

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/5w1tchy/book-entry/internal/models"
	"github.com/5w1tchy/book-entry/internal/validate"
	json "github.com/goccy/go-json"
)

// decode turns the stored bytes into a list, applying the corruption policy.
// Absent or blank values decode to an empty list. A well-formed array holding
// an entry that could never have passed validation is corrupt too.
func (c *Catalog) decode(raw []byte, found bool) ([]models.Book, error) {
	if !found || len(bytes.TrimSpace(raw)) == 0 {
		return []models.Book{}, nil
	}

	var list []models.Book
	err := json.Unmarshal(raw, &list)
	if err == nil && list == nil {
		// "null" is not a list either
		err = errors.New("value is null")
	}
	if err == nil {
		err = checkEntries(list)
	}
	if err == nil {
		return list, nil
	}

	if c.opts.OnCorrupt == PolicyReset {
		log.Printf("[catalog] key %q holds undecodable data (%v); discarding %d bytes", c.opts.Key, err, len(raw))
		return []models.Book{}, nil
	}
	return nil, fmt.Errorf("%w: key %q: %v", ErrCorrupt, c.opts.Key, err)
}

func checkEntries(list []models.Book) error {
	for i, b := range list {
		if err := checkEntry(b); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// checkEntry holds a stored book to the rules a new one is validated against.
func checkEntry(b models.Book) error {
	switch {
	case !validate.ISBN13(b.ISBN):
		return fmt.Errorf("isbn %q is not 13 digits", b.ISBN)
	case strings.TrimSpace(b.Title) == "":
		return errors.New("blank title")
	case math.IsNaN(b.Price) || math.IsInf(b.Price, 0) || b.Price < 0:
		return fmt.Errorf("price %v out of range", b.Price)
	case b.ReleaseDate.IsZero():
		return errors.New("missing release date")
	}
	return nil
}

func encode(list []models.Book) ([]byte, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode: %w", err)
	}
	return data, nil
}

func containsISBN(list []models.Book, isbn string) bool {
	for _, b := range list {
		if b.ISBN == isbn {
			return true
		}
	}
	return false
}
