package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/models"
	"github.com/terraincognita07/lua/internal/services"
)

func (handler *Handler) ListPeriods(c *fiber.Ctx) error {
	periods, err := handler.periods.List()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"periods": periods})
}

func (handler *Handler) CreatePeriod(c *fiber.Ctx) error {
	period, err := handler.parsePeriodInput(c)
	if err != nil {
		return handler.serviceError(c, err)
	}
	created, err := handler.periods.Add(period)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (handler *Handler) UpdatePeriod(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_input")
	}
	period, err := handler.parsePeriodInput(c)
	if err != nil {
		return handler.serviceError(c, err)
	}
	period.ID = uint(id)

	updated, err := handler.periods.Update(period)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(updated)
}

func (handler *Handler) DeletePeriod(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_input")
	}
	if err := handler.periods.Delete(uint(id)); err != nil {
		return handler.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) StartPeriod(c *fiber.Ctx) error {
	created, err := handler.periods.StartPeriod()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (handler *Handler) EndPeriod(c *fiber.Ctx) error {
	closed, err := handler.periods.EndOngoingPeriod()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(closed)
}

func (handler *Handler) parsePeriodInput(c *fiber.Ctx) (models.Period, error) {
	input := periodInput{}
	if err := c.BodyParser(&input); err != nil {
		return models.Period{}, services.ErrInvalidDate
	}

	start := strings.TrimSpace(input.StartDate)
	if !services.IsValidDate(start) {
		return models.Period{}, services.ErrInvalidDate
	}
	period := models.Period{StartDate: start}
	if input.EndDate == nil || strings.TrimSpace(*input.EndDate) == "" {
		return period, nil
	}

	end := strings.TrimSpace(*input.EndDate)
	if !services.IsValidDate(end) {
		return models.Period{}, services.ErrInvalidDate
	}
	if end < start {
		return models.Period{}, services.ErrInvalidPeriodRange
	}
	period.EndDate = &end
	return period, nil
}
