package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CustomErrorHandler renders every unhandled error as a JSON body with the
// shape the frontend expects. Gateway and database internals never leak to
// the client; they are logged instead.
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := ""

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		}
	}

	if message == "" {
		switch code {
		case http.StatusNotFound:
			message = "The resource you're looking for doesn't exist."
		case http.StatusForbidden:
			message = "You don't have permission to access this resource."
		case http.StatusUnauthorized:
			message = "Please log in to continue."
		case http.StatusBadRequest:
			message = "The request could not be processed."
		case http.StatusTooManyRequests:
			message = "Please wait a moment before trying again"
		default:
			message = "Something went wrong. Please try again later."
		}
	}

	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}

	if writeErr := c.JSON(code, map[string]interface{}{
		"success": false,
		"message": message,
	}); writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
