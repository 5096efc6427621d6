package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator wires go-playground/validator into Echo so every bound
// request body gets field-level validation before domain logic runs
type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validator: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func getUintFromContext(c echo.Context, key string) uint {
	if val := c.Get(key); val != nil {
		if n, ok := val.(uint); ok {
			return n
		}
	}
	return 0
}
