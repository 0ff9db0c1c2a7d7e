package models

import "time"

// Book is a validated catalog entry. Values are only built by the validate
// package, after every field has passed.
type Book struct {
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	ReleaseDate time.Time `json:"releaseDate"` // midnight UTC of the entered day
}

// CalendarDay builds the midnight-UTC instant for a calendar day. Storing days
// this way keeps the encoded date equal to the entered one on any host zone.
func CalendarDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day returns the (year, month, day) the book was entered with.
func (b Book) Day() (int, time.Month, int) {
	return b.ReleaseDate.UTC().Date()
}
