package api

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/camroll/internal/gallery"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/pager"
)

// MediaListResponse wraps paginated media listings.
type MediaListResponse struct {
	Media []models.Media `json:"media" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// CountsResponse holds the number of indexed items per kind.
type CountsResponse struct {
	Images int `json:"images" example:"12"`
	Videos int `json:"videos" example:"3"`
}

// ModeRequest is the request body for PUT /gallery/mode.
type ModeRequest struct {
	Mode string `json:"mode" example:"multi" validate:"required"`
}

// Validate implements request validation.
func (r *ModeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Mode, validation.Required, validation.In("single", "multi")),
	)
}

// PositionRequest carries a list position.
type PositionRequest struct {
	Position int `json:"position" example:"0"`
}

// Validate implements request validation.
func (r *PositionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Position, validation.Min(0)),
	)
}

// DeleteResultResponse is the outcome of a batch delete.
type DeleteResultResponse struct {
	Status  gallery.Status     `json:"status" example:"applied"`
	Deleted []models.Locator   `json:"deleted"`
	Failed  []DeleteFailureDTO `json:"failed"`
	Message string             `json:"message" example:"deleted: 2"`
}

// DeleteFailureDTO is one item a batch delete could not remove.
type DeleteFailureDTO struct {
	Locator models.Locator `json:"locator"`
	Error   string         `json:"error"`
}

func deleteResultDTO(res gallery.DeleteResult) DeleteResultResponse {
	out := DeleteResultResponse{
		Status:  res.Status,
		Deleted: res.Deleted,
		Failed:  make([]DeleteFailureDTO, len(res.Failures)),
		Message: res.Message(),
	}
	if out.Deleted == nil {
		out.Deleted = []models.Locator{}
	}
	for i, f := range res.Failures {
		out.Failed[i] = DeleteFailureDTO{Locator: f.Locator, Error: f.Err.Error()}
	}
	return out
}

// PageResponse is one viewer page.
type PageResponse struct {
	Kind string `json:"kind" example:"image"`
	pager.Item
	ContentURL string `json:"content_url" example:"/api/media/images/12/content"`
}

func pageDTO(p pager.Page) PageResponse {
	it := pager.ItemOf(p)
	return PageResponse{Kind: pager.KindOf(p).String(), Item: it, ContentURL: contentURL(it.Locator)}
}

// MediaResponse is a media item with its content URL.
type MediaResponse struct {
	models.Media
	ContentURL string `json:"content_url"`
}

func contentURL(loc models.Locator) string {
	kind, id, err := loc.Split()
	if err != nil {
		return ""
	}
	return "/api/media/" + kind.Collection() + "/" + strconv.FormatInt(id, 10) + "/content"
}
