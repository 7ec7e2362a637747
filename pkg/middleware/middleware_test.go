package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/linkerr"
)

func newEcho(t *testing.T, messages *[]ectologger.EctoLogMessage, handler echo.HandlerFunc) *echo.Echo {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		if messages != nil {
			*messages = append(*messages, msg)
		}
	})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context(), Logger(logger))
	e.GET("/", handler)
	return e
}

func TestContext(t *testing.T) {
	var gotRequestID, gotUser string
	e := newEcho(t, nil, func(c echo.Context) error {
		gotRequestID = context.GetRequestID(c.Request().Context())
		gotUser = context.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	t.Run("keeps incoming ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		req.Header.Set(HeaderUserID, "analyst-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "req-1", gotRequestID)
		assert.Equal(t, "analyst-1", gotUser)
		assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("generates a request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, gotRequestID)
		assert.Empty(t, gotUser)
		assert.Equal(t, gotRequestID, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{name: "echo error", err: echo.NewHTTPError(http.StatusUnauthorized, "nope"), status: http.StatusUnauthorized, message: "nope"},
		{name: "conflict", err: linkerr.Conflict("op", "subject s1 is already merged"), status: http.StatusConflict, kind: "conflict"},
		{name: "wrapped not found", err: errorsWrap(linkerr.NotFound("op", "subject", "s1")), status: http.StatusNotFound, kind: "not_found"},
		{name: "unclassified", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []ectologger.EctoLogMessage
			e := newEcho(t, &messages, func(echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.RequestID)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Message)
			}
			assert.NotEmpty(t, messages, "error and request lines are logged")
		})
	}
}

func errorsWrap(err error) error {
	return errors.Join(errors.New("loading subject"), err)
}

func TestRequireUser(t *testing.T) {
	e := echo.New()
	e.Use(Context())
	e.POST("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireUser())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderUserID, "analyst")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
