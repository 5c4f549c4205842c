package pager

import (
	"context"
	"fmt"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/models"
)

// MimeLookup returns the MIME type recorded for a locator.
type MimeLookup interface {
	MimeType(ctx context.Context, loc models.Locator) (string, error)
}

// Item is what every page carries.
type Item struct {
	Position int            `json:"position"`
	Locator  models.Locator `json:"locator"`
	MimeType string         `json:"mime_type"`
}

// Page is the display variant of one item: ImagePage or VideoPage. Callers
// switch over the two concrete types.
type Page interface {
	item() Item
}

// ImagePage is shown as a still image.
type ImagePage struct{ Item }

// VideoPage is played back with transport controls.
type VideoPage struct{ Item }

func (p ImagePage) item() Item { return p.Item }
func (p VideoPage) item() Item { return p.Item }

// ItemOf returns the common fields of p.
func ItemOf(p Page) Item { return p.item() }

// KindOf returns the media kind of p.
func KindOf(p Page) models.Kind {
	switch p.(type) {
	case ImagePage:
		return models.KindImage
	case VideoPage:
		return models.KindVideo
	}
	return 0
}

// NewPage looks up loc's MIME type and builds the matching variant.
func NewPage(ctx context.Context, lookup MimeLookup, position int, loc models.Locator) (Page, error) {
	mime, err := lookup.MimeType(ctx, loc)
	if err != nil {
		return nil, err
	}
	kind, ok := models.KindFromMIME(mime)
	if !ok {
		return nil, fmt.Errorf("pager: %s has type %q: %w", loc, mime, apperr.ErrInvalidMedia)
	}
	it := Item{Position: position, Locator: loc, MimeType: mime}
	if kind == models.KindVideo {
		return VideoPage{it}, nil
	}
	return ImagePage{it}, nil
}
