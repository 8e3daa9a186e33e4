package models

import "errors"

var (
	// ErrNotFound is returned by stores when no record has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by stores when a record with the same id exists.
	ErrDuplicate = errors.New("duplicate record")
)
