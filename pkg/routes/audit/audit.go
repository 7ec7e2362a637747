package audit

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type Lister interface {
	ListAuditActions(ctx context.Context, limit int) ([]models.AuditAction, error)
}

type Handler struct {
	lister Lister
}

func NewHandler(lister Lister) *Handler {
	return &Handler{lister: lister}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/audit", h.List)
}

type listRequest struct {
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=1000"`
}

// List returns the most recent audit actions, newest first
func (h *Handler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "audit.List")
	defer span.End()

	req, err := routes.BindRequest[listRequest](c)
	if err != nil {
		return err
	}
	if req.Limit == 0 {
		req.Limit = 100
	}

	actions, err := h.lister.ListAuditActions(ctx, req.Limit)
	if err != nil {
		return err
	}
	if actions == nil {
		actions = []models.AuditAction{}
	}
	return c.JSON(http.StatusOK, map[string]any{"actions": actions})
}
