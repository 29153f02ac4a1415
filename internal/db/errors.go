package db

import "errors"

// Sentinel errors for storage and backend operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
)

// Op names used for error context.
const (
	OpSearch = "SEARCH"
	OpPing   = "PING"
	OpGet    = "GET"
	OpSet    = "SET"
	OpDelete = "DEL"
	OpIncrBy = "INCRBY"
	OpExpire = "EXPIRE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
