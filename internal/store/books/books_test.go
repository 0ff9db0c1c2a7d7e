package books_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/5w1tchy/book-entry/internal/models"
	"github.com/5w1tchy/book-entry/internal/storage/file"
	"github.com/5w1tchy/book-entry/internal/storage/kv"
	"github.com/5w1tchy/book-entry/internal/store/books"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(i int) models.Book {
	return models.Book{
		ISBN:        fmt.Sprintf("978000000%04d", i),
		Title:       fmt.Sprintf("Book %d", i),
		Price:       float64(i) + 0.99,
		ReleaseDate: models.CalendarDay(2020, time.Month(i%12+1), i%28+1),
	}
}

func TestAppend_EmptyStoreStartsList(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	c := books.New(store, books.Options{})

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	b := models.Book{
		ISBN:        "9780134685991",
		Title:       "Effective Java",
		Price:       45.99,
		ReleaseDate: models.CalendarDay(2023, time.October, 8),
	}
	require.NoError(t, c.Append(ctx, b))

	raw, err := store.Get(ctx, "Books")
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"isbn":"9780134685991","title":"Effective Java","price":45.99,"releaseDate":"2023-10-08T00:00:00Z"}]`,
		string(raw))
}

func TestAppend_PreservesOrderAndFields(t *testing.T) {
	stores := map[string]func(t *testing.T) kv.Store{
		"memory": func(t *testing.T) kv.Store { return kv.NewMemory() },
		"file": func(t *testing.T) kv.Store {
			s, err := file.Open(t.TempDir(), file.Config{})
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := books.New(mk(t), books.Options{})

			const n = 25
			for i := 0; i < n; i++ {
				require.NoError(t, c.Append(ctx, book(i)))
			}

			got, err := c.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, n)
			for i, b := range got {
				want := book(i)
				assert.Equal(t, want.ISBN, b.ISBN)
				assert.Equal(t, want.Title, b.Title)
				assert.Equal(t, want.Price, b.Price)
				assert.True(t, want.ReleaseDate.Equal(b.ReleaseDate), "book %d date", i)
			}
		})
	}
}

func TestAppend_DuplicatesAllowedByDefault(t *testing.T) {
	ctx := context.Background()
	c := books.New(kv.NewMemory(), books.Options{})

	require.NoError(t, c.Append(ctx, book(1)))
	require.NoError(t, c.Append(ctx, book(1)))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAppend_UniqueISBN(t *testing.T) {
	ctx := context.Background()
	c := books.New(kv.NewMemory(), books.Options{UniqueISBN: true})

	require.NoError(t, c.Append(ctx, book(1)))
	err := c.Append(ctx, book(1))
	require.ErrorIs(t, err, books.ErrDuplicateISBN)

	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestCorrupt_FailPolicyKeepsData(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "Books", []byte(`{not json`)))
	c := books.New(store, books.Options{OnCorrupt: books.PolicyFail})

	_, err := c.List(ctx)
	require.ErrorIs(t, err, books.ErrCorrupt)

	err = c.Append(ctx, book(1))
	require.ErrorIs(t, err, books.ErrCorrupt)

	raw, _ := store.Get(ctx, "Books")
	assert.Equal(t, `{not json`, string(raw))
}

// invalidEntries are well-formed arrays whose entries no submission could produce.
var invalidEntries = []string{
	`[{}]`,
	`[null]`,
	`[{}, null, {"isbn":"abc","price":-5}]`,
	`[{"isbn":"9780134685991","title":"  ","price":1,"releaseDate":"2023-10-08T00:00:00Z"}]`,
	`[{"isbn":"9780134685991","title":"Go","price":-1,"releaseDate":"2023-10-08T00:00:00Z"}]`,
	`[{"isbn":"9780134685991","title":"Go","price":1}]`,
}

func TestCorrupt_InvalidEntriesFail(t *testing.T) {
	for _, bad := range invalidEntries {
		ctx := context.Background()
		store := kv.NewMemory()
		require.NoError(t, store.Set(ctx, "Books", []byte(bad)))
		c := books.New(store, books.Options{})

		_, err := c.List(ctx)
		require.ErrorIs(t, err, books.ErrCorrupt, bad)

		err = c.Append(ctx, book(1))
		require.ErrorIs(t, err, books.ErrCorrupt, bad)

		raw, _ := store.Get(ctx, "Books")
		assert.Equal(t, bad, string(raw))
	}
}

func TestCorrupt_ResetPolicyStartsOver(t *testing.T) {
	for _, bad := range append([]string{`{not json`, `null`, `{"isbn":"1"}`, `[1,2,3]`}, invalidEntries...) {
		ctx := context.Background()
		store := kv.NewMemory()
		require.NoError(t, store.Set(ctx, "Books", []byte(bad)))
		c := books.New(store, books.Options{OnCorrupt: books.PolicyReset})

		got, err := c.List(ctx)
		require.NoError(t, err, bad)
		assert.Empty(t, got, bad)

		require.NoError(t, c.Append(ctx, book(7)), bad)
		got, err = c.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1, bad)
		assert.Equal(t, book(7).ISBN, got[0].ISBN)
	}
}

func TestBlankValueIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "Books", []byte("  ")))
	c := books.New(store, books.Options{})

	got, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCustomKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	c := books.New(store, books.Options{Key: "shelf"})
	assert.Equal(t, "shelf", c.Key())

	require.NoError(t, c.Append(ctx, book(1)))
	_, err := store.Get(ctx, "Books")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.Get(ctx, "shelf")
	assert.NoError(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := books.ParsePolicy("RESET")
	require.NoError(t, err)
	assert.Equal(t, books.PolicyReset, p)
	assert.Equal(t, "reset", p.String())

	p, err = books.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, books.PolicyFail, p)

	_, err = books.ParsePolicy("ignore")
	assert.Error(t, err)
}
