package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Validation errors
	ErrInvalidNode      = errors.New("invalid node")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrDimension        = errors.New("unsupported dimensionality")
)

// NewNotFoundError reports a missing resource by id.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewNodeError reports a node that does not fit the graph's dimensions.
func NewNodeError(n Node, ndim int, reason string) error {
	return fmt.Errorf("%w %s (ndim=%d): %s", ErrInvalidNode, n, ndim, reason)
}

// IsNotFoundError reports whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
