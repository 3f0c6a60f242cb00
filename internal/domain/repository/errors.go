package repository

import "errors"

// ErrNotFound is returned by repositories when a lookup matches nothing.
// Callers check it with errors.Is; the storage driver's own sentinel never
// leaves the store package.
var ErrNotFound = errors.New("not found")
