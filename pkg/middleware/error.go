package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	Kind      string         `json:"kind,omitempty"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// Error renders every handler error as an ErrorResponse
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal Server Error"
		meta := map[string]any{}
		kind := linkerr.KindOf(err)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		} else {
			converted := linkerr.ToHTTPError(err)
			if httperror.IsHTTPError(converted) {
				httperr := httperror.ToHTTPError(converted)
				code = httperror.GetStatusCode(converted)
				message = httperr.Error()
				if httperr.Meta != nil {
					meta = httperr.Meta
				}
			}
		}

		log := logger.WithContext(ctx).WithError(err).WithField("status", code)
		if code >= http.StatusInternalServerError {
			log.Error("api is returning an error")
		} else {
			log.Warn("api is rejecting a request")
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			Kind:      string(kind),
			RequestID: context.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}
