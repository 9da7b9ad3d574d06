package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorResponse mirrors httpapi.ErrorResponse without importing the
// parent package (avoids an import cycle: httpapi imports middleware).
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler maps an unhandled route error to a JSON body, the same
// role the teacher's middleware.ErrorHandler plays for its own Echo
// instance.
func ErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			_ = c.JSON(he.Code, errorResponse{Error: http.StatusText(he.Code), Message: msg})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: err.Error()})
	}
}
