package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/services"
)

// Cycles lists the cycle history, oldest first unless order=desc.
func (handler *Handler) Cycles(c *fiber.Ctx) error {
	snapshot, err := handler.periods.Snapshot()
	if err != nil {
		return handler.serviceError(c, err)
	}

	history := snapshot.History
	if strings.EqualFold(c.Query("order"), "desc") {
		history = services.ReverseCycles(history)
	}

	cycles := make([]cycleResponse, 0, len(history))
	for _, cycle := range history {
		cycles = append(cycles, cycleResponse{CycleInfo: cycle, Range: services.FormatDateRange(cycle.StartDate, cycle.EndDate)})
	}
	return c.JSON(fiber.Map{
		"cycles":      cycles,
		"fluctuation": snapshot.Fluctuation,
	})
}

// Forecast chains n future cycles; n defaults to the configured count.
func (handler *Handler) Forecast(c *fiber.Ctx) error {
	if c.Query("n") == "" {
		snapshot, err := handler.periods.Snapshot()
		if err != nil {
			return handler.serviceError(c, err)
		}
		return c.JSON(fiber.Map{"cycles": snapshot.FutureCycles})
	}

	n := c.QueryInt("n", 0)
	if n < 1 || n > maxForecastCount {
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_input")
	}
	cycles, err := handler.periods.Forecast(n)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"cycles": cycles})
}
