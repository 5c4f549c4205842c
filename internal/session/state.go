package session

import (
	"fmt"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/pager"
)

// GalleryState is a snapshot of the gallery screen.
type GalleryState struct {
	Items    []GalleryItem `json:"items"`
	Mode     string        `json:"mode"`
	Selected int           `json:"selected"`
	Busy     bool          `json:"busy"`
	Notice   string        `json:"notice,omitempty"`
	Viewer   *ViewerState  `json:"viewer,omitempty"`
}

// GalleryItem is one grid cell.
type GalleryItem struct {
	Position    int            `json:"position"`
	Locator     models.Locator `json:"locator"`
	Video       bool           `json:"video"`
	Highlighted bool           `json:"highlighted"`
}

// ViewerState is a snapshot of the detail pager.
type ViewerState struct {
	State    pager.State      `json:"state"`
	Current  int              `json:"current"`
	Locator  models.Locator   `json:"locator,omitempty"`
	Locators []models.Locator `json:"locators"`
	Deleting bool             `json:"deleting"`
}

func errBusy() error {
	return fmt.Errorf("session: delete in progress: %w", apperr.ErrBusy)
}
