package repositories

import "errors"

var (
	// ErrNotFound indicates no row matched the lookup or guarded update.
	ErrNotFound = errors.New("no matching record")
	// ErrConflict indicates the write collided with a uniqueness constraint.
	ErrConflict = errors.New("duplicate record")
)
