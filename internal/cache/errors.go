package cache

import "errors"

// Standard cache errors. Check with errors.Is.
var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operations are attempted after Close.
	ErrClosed = errors.New("cache: cache is closed")
)
