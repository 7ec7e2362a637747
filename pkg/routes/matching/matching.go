package matching

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type Engine interface {
	FindAllMatchesWithHints(ctx context.Context, raw string, kind models.IdentifierKind, hints models.Hints, threshold float64) (*models.MatchSet, error)
}

type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/matches", h.FindMatches)
}

type Request struct {
	Type      string       `json:"type" validate:"required"`
	Value     string       `json:"value" validate:"required"`
	Hints     models.Hints `json:"hints"`
	Threshold float64      `json:"threshold" validate:"gte=0,lte=1"`
}

// FindMatches runs every matching tier for a raw identifier value
func (h *Handler) FindMatches(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "matching.FindMatches")
	defer span.End()

	req, err := routes.BindRequest[Request](c)
	if err != nil {
		return err
	}

	set, err := h.engine.FindAllMatchesWithHints(ctx, req.Value, models.IdentifierKind(req.Type), req.Hints, req.Threshold)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, set)
}
