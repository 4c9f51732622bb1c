package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/services"
)

func (handler *Handler) Dashboard(c *fiber.Ctx) error {
	snapshot, err := handler.periods.Snapshot()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(handler.buildDashboard(c, snapshot))
}

func (handler *Handler) buildDashboard(c *fiber.Ctx, snapshot services.Snapshot) dashboardResponse {
	lang := handler.language(c)
	response := dashboardResponse{
		Status:      snapshot.Status,
		Today:       snapshot.Today,
		Prediction:  snapshot.Prediction,
		CycleDay:    snapshot.CycleDay,
		Phase:       snapshot.Phase,
		Fluctuation: snapshot.Fluctuation,
	}

	day := 0
	if snapshot.CycleDay != nil {
		day = snapshot.CycleDay.Day
	}
	if snapshot.Status != services.StatusNormal || snapshot.CycleDay != nil {
		response.StatusText = handler.i18n.StatusText(lang, string(snapshot.Status), day)
	}
	if snapshot.Prediction != nil {
		response.ConfidenceLabel = handler.i18n.ConfidenceLabel(lang, string(snapshot.Prediction.Confidence))
	}
	if snapshot.Phase != nil {
		response.PhaseLabel = handler.i18n.PhaseLabel(lang, string(snapshot.Phase.Phase))
	}
	if len(snapshot.FutureCycles) > 0 {
		next := snapshot.FutureCycles[0]
		response.NextCycle = &next
	}

	if ongoing, ongoingDay, ok := snapshot.OngoingDay(); ok {
		response.Ongoing = &ongoingResponse{ID: ongoing.ID, StartDate: ongoing.StartDate, Day: ongoingDay}
		response.Countdown = handler.i18n.TranslateData(lang, "status.during_period", map[string]any{"Day": ongoingDay})
		return response
	}
	if snapshot.CycleDay != nil && snapshot.CycleDay.DaysUntilNext != nil {
		response.Countdown = handler.i18n.Countdown(lang, *snapshot.CycleDay.DaysUntilNext)
	}
	return response
}
