package service

import (
	"errors"
	"fmt"
)

// ErrNotReady means the configuration's first parse is still running; the
// caller should poll status and retry.
var ErrNotReady = errors.New("configuration is still loading")

// NotFoundError covers unknown configurations, kinds, names, and paths.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

// ValidationError reports bad request parameters, rejected at the boundary
// before any filtering or pagination runs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ParseFailedError surfaces a failed cache entry to callers. The underlying
// parse error is retained for status endpoints.
type ParseFailedError struct {
	Config string
	Err    error
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("configuration %s failed to parse: %v", e.Config, e.Err)
}

func (e *ParseFailedError) Unwrap() error { return e.Err }
