package httpx

import "errors"

var (
	ErrUnsupportedMedia = errors.New("content type must be application/json")
	ErrTrailingData     = errors.New("body must contain a single JSON object")
)
