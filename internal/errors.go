package internal

import (
	"errors"
	"fmt"
)

var ErrSlugExists = errors.New("slug already exists")
var ErrLinkNotFound = errors.New("link not found")
var ErrInvalidLink = errors.New("invalid link")

// ErrMalformedDestination means a stored destination URL cannot be used as a
// redirect target.
var ErrMalformedDestination = errors.New("malformed destination url")

// ErrAnalyticsUnavailable wraps store failures during dashboard reads. It is
// retryable.
var ErrAnalyticsUnavailable = errors.New("analytics data unavailable")

// SlugConflictError is returned when the storage layer rejects an insert
// because the slug is taken.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q already exists", e.Slug)
}

func (e *SlugConflictError) Is(target error) bool {
	return target == ErrSlugExists
}
