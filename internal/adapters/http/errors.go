package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errBadGateway returns a 502 error.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// writeError maps domain errors to API errors.
func writeError(c *fiber.Ctx, err error) error {
	var (
		ve  *domain.ValidationError
		pe  *domain.PersistenceError
		tpe *domain.TransientProviderError
	)
	switch {
	case errors.As(err, &ve):
		return errBadRequest(c, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "not found")
	case errors.As(err, &pe):
		LoggerFromCtx(c.UserContext()).Error("persistence failed", "op", pe.Op, "error", pe.Err)
		return errBadGateway(c, "the parcel could not be saved, please retry")
	case errors.Is(err, usecases.ErrWeatherUnavailable):
		return errUnavailable(c, err.Error())
	case errors.As(err, &tpe):
		return errBadGateway(c, tpe.Provider+" unavailable")
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "error", err)
	return errInternal(c, "internal error")
}
