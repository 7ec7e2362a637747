package suggestions

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type Service interface {
	GetSubjectSuggestions(ctx context.Context, subjectID string) (*models.SuggestionResponse, error)
	GetOrphanSuggestions(ctx context.Context, orphanID string) (*models.SuggestionResponse, error)
}

type AutoLinker interface {
	SuggestSubjects(ctx context.Context, identifierType, identifierValue string, limit int) ([]models.AutoLinkCandidate, error)
}

type Handler struct {
	service  Service
	autoLink AutoLinker
}

// NewHandler creates the read-only suggestion routes. autoLink may be nil.
func NewHandler(service Service, autoLink AutoLinker) *Handler {
	return &Handler{service: service, autoLink: autoLink}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/subjects/:id/suggestions", h.GetSubjectSuggestions)
	g.GET("/orphans/:id/suggestions", h.GetOrphanSuggestions)
	if h.autoLink != nil {
		g.GET("/autolink/candidates", h.GetAutoLinkCandidates)
	}
}

type idRequest struct {
	ID string `param:"id" validate:"required"`
}

func (h *Handler) GetSubjectSuggestions(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "suggestions.GetSubjectSuggestions")
	defer span.End()

	req, err := routes.BindRequest[idRequest](c)
	if err != nil {
		return err
	}

	result, err := h.service.GetSubjectSuggestions(ctx, req.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetOrphanSuggestions(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "suggestions.GetOrphanSuggestions")
	defer span.End()

	req, err := routes.BindRequest[idRequest](c)
	if err != nil {
		return err
	}

	result, err := h.service.GetOrphanSuggestions(ctx, req.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type autoLinkRequest struct {
	Type  string `query:"type" validate:"required"`
	Value string `query:"value" validate:"required"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (h *Handler) GetAutoLinkCandidates(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "suggestions.GetAutoLinkCandidates")
	defer span.End()

	req, err := routes.BindRequest[autoLinkRequest](c)
	if err != nil {
		return err
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	candidates, err := h.autoLink.SuggestSubjects(ctx, req.Type, req.Value, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"candidates": candidates})
}
