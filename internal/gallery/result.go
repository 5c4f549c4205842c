package gallery

import (
	"errors"
	"fmt"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/models"
)

// Status classifies a DeleteSelected outcome.
type Status uint8

const (
	// NothingSelected: the selection was empty, nothing was attempted.
	NothingSelected Status = iota
	// NothingChanged: every delete failed, state is untouched.
	NothingChanged
	// Applied: at least one item was deleted and removed from the list.
	Applied
)

func (s Status) String() string {
	switch s {
	case NothingSelected:
		return "nothing_selected"
	case NothingChanged:
		return "nothing_changed"
	case Applied:
		return "applied"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ItemFailure is one locator that could not be deleted.
type ItemFailure struct {
	Locator models.Locator
	Err     error
}

// DeleteResult is the outcome of DeleteSelected.
type DeleteResult struct {
	Status   Status
	Deleted  []models.Locator
	Failures []ItemFailure
}

// PermissionDenied reports whether any item failed for lack of permission.
func (r DeleteResult) PermissionDenied() bool {
	for _, f := range r.Failures {
		if errors.Is(f.Err, apperr.ErrPermissionDenied) {
			return true
		}
	}
	return false
}

// Message is the user-facing notification for the outcome.
func (r DeleteResult) Message() string {
	switch r.Status {
	case NothingSelected:
		return "nothing selected"
	case Applied:
		if len(r.Failures) > 0 {
			return fmt.Sprintf("deleted: %d (failed: %d)", len(r.Deleted), len(r.Failures))
		}
		return fmt.Sprintf("deleted: %d", len(r.Deleted))
	}
	if r.PermissionDenied() {
		return "no permission to delete"
	}
	return "delete failed"
}
