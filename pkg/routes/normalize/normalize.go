package normalize

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/routes"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type Request struct {
	Type  string       `json:"type" validate:"required"`
	Value string       `json:"value" validate:"required"`
	Hints models.Hints `json:"hints"`
}

type Handler struct {
	normalizer *normalizers.Normalizer
	defaults   models.Hints
}

// NewHandler serves the normalizer. defaults fill hints the caller leaves empty.
func NewHandler(normalizer *normalizers.Normalizer, defaults models.Hints) *Handler {
	return &Handler{normalizer: normalizer, defaults: defaults}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/normalize", h.Normalize)
}

func (h *Handler) Normalize(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "normalize.Normalize")
	defer span.End()

	req, err := routes.BindRequest[Request](c)
	if err != nil {
		return err
	}

	hints := req.Hints
	if hints.DefaultRegion == "" {
		hints.DefaultRegion = h.defaults.DefaultRegion
	}
	if hints.DateOrder == "" {
		hints.DateOrder = h.defaults.DateOrder
	}
	if hints.CurrencyHint == "" {
		hints.CurrencyHint = h.defaults.CurrencyHint
	}

	result := h.normalizer.Normalize(req.Value, models.IdentifierKind(req.Type), hints)
	return c.JSON(http.StatusOK, result)
}
