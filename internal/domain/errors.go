package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty search query")
	// ErrInvalidRequest signals search parameters outside their valid range.
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrQueryExecution signals a failed call to the search backend.
	ErrQueryExecution = errors.New("query execution failed")
	// ErrInvalidRules signals a malformed search rule table.
	ErrInvalidRules = errors.New("invalid search rules")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded signals an API key that used up its request quota.
	ErrQuotaExceeded = errors.New("request quota exceeded")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// PageOutOfRangeError is returned when the requested SERP page lies past the last page.
// LastPage is the page the caller should redirect to.
type PageOutOfRangeError struct {
	Requested int
	LastPage  int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range, last page is %d", e.Requested, e.LastPage)
}

func (e *PageOutOfRangeError) Unwrap() error { return ErrInvalidRequest }

// NewPageOutOfRange creates a page out of range error.
func NewPageOutOfRange(requested, lastPage int) error {
	return &PageOutOfRangeError{Requested: requested, LastPage: lastPage}
}
