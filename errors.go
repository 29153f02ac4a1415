package serp

import "github.com/kailas-cloud/serp/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuery     = domain.ErrEmptyQuery
	ErrInvalidRequest = domain.ErrInvalidRequest
	ErrQueryExecution = domain.ErrQueryExecution
	ErrInvalidRules   = domain.ErrInvalidRules
	ErrNotFound       = domain.ErrNotFound
	ErrNotSupported   = domain.ErrNotImplemented
)
