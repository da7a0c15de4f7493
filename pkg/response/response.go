package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartsite-dev/api/pkg/apperrors"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response
func Success(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{
		Success: false,
		Error:   message,
	})
}

// OK sends a 200 OK response
func OK(c echo.Context, message string, data interface{}) error {
	return Success(c, http.StatusOK, message, data)
}

// Created sends a 201 Created response
func Created(c echo.Context, message string, data interface{}) error {
	return Success(c, http.StatusCreated, message, data)
}

// Accepted sends a 202 Accepted response for work that completes later
func Accepted(c echo.Context, message string, data interface{}) error {
	return Success(c, http.StatusAccepted, message, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c echo.Context, message string) error {
	return Error(c, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(c echo.Context, message string) error {
	return Error(c, http.StatusForbidden, message)
}

// NotFound sends a 404 Not Found response
func NotFound(c echo.Context, message string) error {
	return Error(c, http.StatusNotFound, message)
}

// Conflict sends a 409 Conflict response
func Conflict(c echo.Context, message string) error {
	return Error(c, http.StatusConflict, message)
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c echo.Context, message string) error {
	return Error(c, http.StatusInternalServerError, message)
}

// ServiceUnavailable sends a 503 Service Unavailable response
func ServiceUnavailable(c echo.Context, message string) error {
	return Error(c, http.StatusServiceUnavailable, message)
}

// FromError maps an application error onto the matching HTTP response
func FromError(c echo.Context, err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return BadRequest(c, err.Error())
	case apperrors.KindNotFound:
		return NotFound(c, err.Error())
	case apperrors.KindPrecondition:
		return Conflict(c, err.Error())
	default:
		return InternalServerError(c, err.Error())
	}
}
