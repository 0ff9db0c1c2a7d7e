package books

import (
	"context"
	"fmt"

	"github.com/5w1tchy/book-entry/internal/models"
)

// Append adds b to the end of the catalog: read (absent means empty),
// decode, append, encode the whole list, write it back under the same key.
func (c *Catalog) Append(ctx context.Context, b models.Book) error {
	err := c.store.Update(ctx, c.opts.Key, func(old []byte, found bool) ([]byte, error) {
		list, err := c.decode(old, found)
		if err != nil {
			return nil, err
		}
		if c.opts.UniqueISBN && containsISBN(list, b.ISBN) {
			return nil, ErrDuplicateISBN
		}
		return encode(append(list, b))
	})
	if err != nil {
		return fmt.Errorf("catalog append: %w", err)
	}
	return nil
}
