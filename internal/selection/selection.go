// Package selection tracks which gallery items the user has picked.
//
// A Model is owned by one event thread and is not safe for concurrent use.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/camroll/internal/models"
)

// Mode is the gallery's tap behaviour.
type Mode uint8

const (
	// Single opens the tapped item.
	Single Mode = iota
	// Multi toggles the tapped item's membership.
	Multi
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	if m == Multi {
		return "multi"
	}
	return "single"
}

// ParseMode parses "single" or "multi".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "multi":
		return Multi, nil
	}
	return Single, fmt.Errorf("selection: unknown mode %q", s)
}

// ErrSingleMode is returned by Toggle outside multi mode.
var ErrSingleMode = errors.New("selection: toggle requires multi mode")

// Model is the selection set plus the current mode. The set is always empty
// in Single mode.
type Model struct {
	mode  Mode
	set   map[models.Locator]struct{}
	order []models.Locator
}

// New returns an empty model in Single mode.
func New() *Model {
	return &Model{set: make(map[models.Locator]struct{})}
}

// Mode returns the current mode.
func (m *Model) Mode() Mode { return m.mode }

// SetMode switches mode. Switching to Single clears the set; switching to
// Multi keeps whatever is selected.
func (m *Model) SetMode(mode Mode) {
	m.mode = mode
	if mode == Single {
		m.Clear()
	}
}

// Toggle flips loc's membership and returns the new number of selected items.
func (m *Model) Toggle(loc models.Locator) (int, error) {
	if m.mode != Multi {
		return len(m.order), ErrSingleMode
	}
	if _, ok := m.set[loc]; ok {
		delete(m.set, loc)
		m.order = models.MediaList(m.order).Without(loc)
	} else {
		m.set[loc] = struct{}{}
		m.order = append(m.order, loc)
	}
	return len(m.order), nil
}

// Contains reports whether loc is selected.
func (m *Model) Contains(loc models.Locator) bool {
	_, ok := m.set[loc]
	return ok
}

// Len returns the number of selected items.
func (m *Model) Len() int { return len(m.order) }

// Selected returns the selected locators in the order they were picked.
// The result is a copy.
func (m *Model) Selected() []models.Locator {
	return models.MediaList(m.order).Clone()
}

// Clear empties the set without changing mode.
func (m *Model) Clear() {
	clear(m.set)
	m.order = nil
}

// Retain drops every selected locator that is not in list and returns how
// many were dropped.
func (m *Model) Retain(list models.MediaList) int {
	if len(m.order) == 0 {
		return 0
	}
	present := make(map[models.Locator]struct{}, len(list))
	for _, l := range list {
		present[l] = struct{}{}
	}
	kept := m.order[:0]
	dropped := 0
	for _, l := range m.order {
		if _, ok := present[l]; ok {
			kept = append(kept, l)
			continue
		}
		delete(m.set, l)
		dropped++
	}
	m.order = kept
	return dropped
}
