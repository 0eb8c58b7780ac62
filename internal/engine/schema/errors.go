package schema

import (
	"errors"
	"fmt"
)

// Errors returned by schema registration and loading.
var (
	// ErrItemExists indicates an item was registered twice.
	ErrItemExists = errors.New("schema item already registered")

	// ErrItemNotFound indicates an extended item was never registered.
	ErrItemNotFound = errors.New("schema item not registered")

	// ErrUnknownFormat indicates a definition file with an unsupported extension.
	ErrUnknownFormat = errors.New("unknown schema file format")
)

// ParseError represents an error while parsing a schema definition file.
type ParseError struct {
	// Path is the file that failed to parse.
	Path string
	// Message describes the parse error.
	Message string
	// Err is the underlying decoder error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
