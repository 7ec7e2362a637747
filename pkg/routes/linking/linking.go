package linking

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	ctxpkg "github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Service is the linking service as the routes see it
type Service interface {
	LinkRecords(ctx context.Context, req models.LinkRecordsRequest) (*models.LinkRecordsResult, error)
	MergeSubjects(ctx context.Context, req models.MergeSubjectsRequest) (*models.MergeResult, error)
	LinkOrphan(ctx context.Context, req models.LinkOrphanRequest) (*models.LinkOrphanResult, error)
	DismissSuggestion(ctx context.Context, req models.DismissSuggestionRequest) (*models.DismissSuggestionResult, error)
	UndismissSuggestion(ctx context.Context, req models.DismissSuggestionRequest) (*models.DismissSuggestionResult, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the mutation routes with m applied to each of them
func (h *Handler) Register(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("/links/records", h.LinkRecords, m...)
	g.POST("/links/orphan", h.LinkOrphan, m...)
	g.POST("/subjects/merge", h.MergeSubjects, m...)
	g.POST("/suggestions/dismiss", h.DismissSuggestion, m...)
	g.POST("/suggestions/undismiss", h.UndismissSuggestion, m...)
}

func (h *Handler) LinkRecords(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "linking.LinkRecords")
	defer span.End()

	req, err := routes.BindRequest[models.LinkRecordsRequest](c)
	if err != nil {
		return err
	}
	req.CreatedBy = ctxpkg.GetUserID(ctx)

	result, err := h.service.LinkRecords(ctx, req)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.AlreadyLinked {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

func (h *Handler) MergeSubjects(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "linking.MergeSubjects")
	defer span.End()

	req, err := routes.BindRequest[models.MergeSubjectsRequest](c)
	if err != nil {
		return err
	}
	req.CreatedBy = ctxpkg.GetUserID(ctx)

	result, err := h.service.MergeSubjects(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) LinkOrphan(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "linking.LinkOrphan")
	defer span.End()

	req, err := routes.BindRequest[models.LinkOrphanRequest](c)
	if err != nil {
		return err
	}
	req.CreatedBy = ctxpkg.GetUserID(ctx)

	result, err := h.service.LinkOrphan(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) DismissSuggestion(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "linking.DismissSuggestion")
	defer span.End()

	req, err := routes.BindRequest[models.DismissSuggestionRequest](c)
	if err != nil {
		return err
	}
	req.CreatedBy = ctxpkg.GetUserID(ctx)

	result, err := h.service.DismissSuggestion(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) UndismissSuggestion(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "linking.UndismissSuggestion")
	defer span.End()

	req, err := routes.BindRequest[models.DismissSuggestionRequest](c)
	if err != nil {
		return err
	}
	req.CreatedBy = ctxpkg.GetUserID(ctx)

	result, err := h.service.UndismissSuggestion(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
