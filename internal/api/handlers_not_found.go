package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return handler.localizedError(c, fiber.StatusNotFound, "error.route_not_found")
}
