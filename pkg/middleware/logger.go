package middleware

import (
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/context"
)

// Logger writes one line per request once the handler (and error handler) has run
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			fields := context.Fields(req.Context())
			fields["uri"] = req.RequestURI
			fields["status"] = res.Status
			fields["route"] = c.Path()
			fields["remote_ip"] = c.RealIP()
			fields["user_agent"] = req.UserAgent()
			fields["response_time"] = elapsed
			fields["response_size"] = strconv.FormatInt(res.Size, 10)

			logger.WithContext(req.Context()).WithFields(fields).Info("Request")
			return nil
		}
	}
}
