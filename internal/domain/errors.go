package domain

import "errors"

var (
	ErrExtractionNotFound  = errors.New("extraction: payload not found")
	ErrExtractionMalformed = errors.New("extraction: malformed payload")
	ErrGenerationExhausted = errors.New("generation exhausted")
	ErrItemFetchFailed     = errors.New("item fetch failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
)
