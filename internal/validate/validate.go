package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/5w1tchy/book-entry/internal/models"
	"golang.org/x/text/unicode/norm"
)

var isbn13Re = regexp.MustCompile(`^\d{13}$`)

// dateLayouts are tried in order. None depends on the host locale.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 02 2006",
}

// ISBN13 reports whether s is exactly 13 ASCII digits. No separators and no
// checksum test.
func ISBN13(s string) bool {
	return isbn13Re.MatchString(s)
}

// Title trims s and reports whether anything is left. The returned title is
// NFC-normalised so visually equal titles compare equal.
func Title(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return norm.NFC.String(s), true
}

// Price parses a finite, non-negative amount.
func Price(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, false
	}
	if p == 0 {
		p = 0 // drop the sign of -0
	}
	return p, true
}

// ReleaseDate parses s and returns midnight UTC of the calendar day written
// in s. The day is taken from the parsed value's own offset, so an input
// like "2023-10-08T23:30:00-05:00" still yields October 8.
func ReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return models.CalendarDay(y, m, d), true
	}
	return time.Time{}, false
}
