package http

import (
	"errors"
	"net/http"

	"cafe/internal/core/application/lifecycle"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusFor maps application errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrTransitionInProgress):
		return http.StatusConflict
	case errors.Is(err, order.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrTransitionFailed):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = http.StatusText(code)
	}
	return c.JSON(code, errorResponse{Code: code, Message: message})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Code: http.StatusBadRequest, Message: message})
}
