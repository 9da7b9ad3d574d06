package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duragraph/graphrt/telemetry/metrics"
)

// Metrics records one telemetry/metrics.Metrics.RecordHTTPRequest call
// per request, mirroring the teacher's own HTTP metrics middleware.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			m.RecordHTTPRequest(c.Request().Method, c.Path(), status, time.Since(start))
			return err
		}
	}
}
