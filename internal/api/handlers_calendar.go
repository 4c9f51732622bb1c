package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/models"
	"github.com/terraincognita07/lua/internal/services"
)

func (handler *Handler) CalendarDates(c *fiber.Ctx) error {
	snapshot, err := handler.periods.Snapshot()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"today":    snapshot.Today,
		"dateSets": snapshot.DateSets,
	})
}

// ApplySelection treats the posted days as the complete set of period days
// and rewrites stored periods to match.
func (handler *Handler) ApplySelection(c *fiber.Ctx) error {
	input := selectionInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_input")
	}

	selected := services.NewDateSet()
	for _, raw := range input.Days {
		day := strings.TrimSpace(raw)
		if !services.IsValidDate(day) {
			return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_date")
		}
		selected.Add(day)
	}

	changes, err := handler.periods.ApplyCalendarSelection(selected)
	if err != nil {
		return handler.serviceError(c, err)
	}
	if changes == nil {
		changes = []models.PeriodChange{}
	}
	return c.JSON(fiber.Map{"changes": changes})
}
