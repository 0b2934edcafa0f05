package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, unavailable, upstream_error, ...
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
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnavailable returns a 503 for soft failures such as lost connectivity.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// errUpstream returns a 502 for hard failures of a remote dependency.
func errUpstream(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadGateway, "upstream_error", msg)
}

// errFrom maps a plain error, sending lookups that found nothing to 404.
func errFrom(c *fiber.Ctx, err error) error {
	if isNotFound(err) {
		return errNotFound(c, err.Error())
	}
	return errInternal(c, err.Error())
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrTrainNotFound) ||
		errors.Is(err, domain.ErrStationNotFound)
}
