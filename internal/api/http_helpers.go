package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/services"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (handler *Handler) localizedError(c *fiber.Ctx, status int, key string) error {
	return apiError(c, status, handler.translate(c, key))
}

// serviceError maps service failures onto HTTP statuses: conflicts are 409,
// bad input is 400 and storage failures are 500.
func (handler *Handler) serviceError(c *fiber.Ctx, err error) error {
	var importErr *services.ImportError
	if errors.As(err, &importErr) {
		return apiError(c, fiber.StatusBadRequest, handler.i18n.TranslateData(handler.language(c), importErr.MessageKey(), map[string]any{
			"Index": importErr.Index,
		}))
	}

	switch {
	case errors.Is(err, services.ErrPeriodOverlap):
		return handler.localizedError(c, fiber.StatusConflict, "error.overlap")
	case errors.Is(err, services.ErrPeriodAlreadyActive):
		return handler.localizedError(c, fiber.StatusConflict, "error.already_ongoing")
	case errors.Is(err, services.ErrNoOngoingPeriod):
		return handler.localizedError(c, fiber.StatusConflict, "error.no_ongoing")
	case errors.Is(err, services.ErrPeriodNotFound):
		return handler.localizedError(c, fiber.StatusNotFound, "error.not_found")
	case errors.Is(err, services.ErrInvalidDate):
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_date")
	case errors.Is(err, services.ErrInvalidPeriodRange):
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_range")
	case errors.Is(err, services.ErrImportInvalidJSON):
		return handler.localizedError(c, fiber.StatusBadRequest, "import.invalid_json")
	case errors.Is(err, services.ErrImportInvalidFormat):
		return handler.localizedError(c, fiber.StatusBadRequest, "import.invalid_format")
	case errors.Is(err, services.ErrImportNoPeriods):
		return handler.localizedError(c, fiber.StatusBadRequest, "import.no_periods")
	case errors.Is(err, services.ErrPeriodDeleteFailed):
		return handler.localizedError(c, fiber.StatusInternalServerError, "error.delete_failed")
	case errors.Is(err, services.ErrClearDataFailed):
		return handler.localizedError(c, fiber.StatusInternalServerError, "error.clear_failed")
	case errors.Is(err, services.ErrPeriodLoadFailed):
		return handler.localizedError(c, fiber.StatusInternalServerError, "error.load_failed")
	default:
		return handler.localizedError(c, fiber.StatusInternalServerError, "error.save_failed")
	}
}

func setAttachmentHeaders(c *fiber.Ctx, contentType string, filename string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Set(fiber.HeaderCacheControl, "no-store")
}
