package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// Checker reports whether a dependency is reachable
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (f CheckFunc) Name() string                    { return f.CheckName }
func (f CheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

func NewHandler(timeout time.Duration, checkers ...Checker) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Handler{checkers: checkers, timeout: timeout}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Live)
	e.GET("/ready", h.Ready)
}

func (h *Handler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready runs every checker in parallel and fails when any of them does
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	results := make([]string, len(h.checkers))
	var g errgroup.Group
	for i, checker := range h.checkers {
		g.Go(func() error {
			if err := checker.Check(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	err := g.Wait()

	checks := make(map[string]string, len(h.checkers))
	for i, checker := range h.checkers {
		checks[checker.Name()] = results[i]
	}

	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": checks})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}
