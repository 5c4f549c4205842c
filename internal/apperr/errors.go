// Package apperr holds the sentinel errors shared across the media library.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrBusy             = errors.New("operation already in progress")
	ErrInvalidMedia     = errors.New("invalid media")
)
