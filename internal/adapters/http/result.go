package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// respond writes a Result: Success as 200 with the payload, Pending as 202,
// Fail as 503 and Error as 502 (404 for lookups that found nothing).
func respond[T any](c *fiber.Ctx, r domain.Result[T]) error {
	return respondWith(c, r, func(data T) any { return data })
}

// respondWith is respond with a custom success body.
func respondWith[T any](c *fiber.Ctx, r domain.Result[T], body func(T) any) error {
	switch r.Status() {
	case domain.StatusSuccess:
		return c.JSON(body(r.Data()))
	case domain.StatusPending:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": r.Status().String()})
	case domain.StatusFail:
		return errUnavailable(c, r.Message())
	default:
		if isNotFound(r.Err()) {
			return errNotFound(c, r.Err().Error())
		}
		return errUpstream(c, r.Err().Error())
	}
}
