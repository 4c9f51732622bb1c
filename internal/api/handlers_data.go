package api

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/services"
)

func (handler *Handler) Export(c *fiber.Ctx) error {
	payload, err := handler.periods.ExportJSON()
	if err != nil {
		return handler.serviceError(c, err)
	}
	today := services.FormatDate(handler.periods.Today())
	setAttachmentHeaders(c, fiber.MIMEApplicationJSON, "lua-export-"+today+".json")
	return c.Send(payload)
}

// Import replaces every stored period with the uploaded document. A
// multipart "file" field is accepted as well as a raw JSON body.
func (handler *Handler) Import(c *fiber.Ctx) error {
	payload := c.Body()
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return handler.localizedError(c, fiber.StatusBadRequest, "import.invalid_json")
		}
		defer file.Close()
		payload, err = io.ReadAll(file)
		if err != nil {
			return handler.localizedError(c, fiber.StatusBadRequest, "import.invalid_json")
		}
	}

	count, err := handler.periods.Import(payload)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"imported": count,
		"message":  handler.i18n.TranslatePlural(handler.language(c), "settings.imported", "Count", count),
	})
}

func (handler *Handler) ClearData(c *fiber.Ctx) error {
	if err := handler.periods.ClearAll(); err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": handler.translate(c, "settings.deleted")})
}
