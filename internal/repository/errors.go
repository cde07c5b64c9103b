// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// managers and handlers to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current user
// is not authorized to act on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed due to
// conflicting state (e.g. an overlapping reservation on the same
// facility).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as creating a
// reservation whose interval overlaps an existing one. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the requested row does not exist.
// Repositories that query with ownership predicates return it for
// rows owned by other users as well, so callers cannot probe for
// the existence of foreign resources.
var ErrNotFound = errors.New("not found")
