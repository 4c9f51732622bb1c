package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// NewApp assembles the Fiber application with middleware and routes.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Lua",
		DisableStartupMessage: true,
		ErrorHandler:          handler.errorHandler,
	})

	app.Use(recover.New())
	app.Use(RequestLogger(handler.logger))
	app.Use(compress.New())
	app.Use(handler.LanguageMiddleware)

	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

func (handler *Handler) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}
	if status >= fiber.StatusInternalServerError {
		handler.logger.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return handler.localizedError(c, status, "error.load_failed")
	}
	return apiError(c, status, err.Error())
}
