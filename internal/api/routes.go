package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/favicon.ico", sendNoContent)
	app.Get("/calendar.ics", handler.CalendarFeed)

	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	periods := api.Group("/periods")
	periods.Get("", handler.ListPeriods)
	periods.Post("", handler.CreatePeriod)
	periods.Post("/start", handler.StartPeriod)
	periods.Post("/end", handler.EndPeriod)
	periods.Patch("/:id", handler.UpdatePeriod)
	periods.Delete("/:id", handler.DeletePeriod)

	api.Get("/dashboard", handler.Dashboard)
	api.Get("/cycles", handler.Cycles)
	api.Get("/forecast", handler.Forecast)

	calendar := api.Group("/calendar")
	calendar.Get("", handler.CalendarDates)
	calendar.Put("/selection", handler.ApplySelection)

	api.Get("/export", handler.Export)
	api.Post("/import", handler.Import)
	api.Delete("/data", handler.ClearData)

	sync := api.Group("/sync")
	sync.Get("/status", handler.SyncStatus)
	sync.Post("/now", handler.SyncNow)
	sync.Post("/connect", handler.SyncConnect)
	sync.Post("/disconnect", handler.SyncDisconnect)

	api.Get("/feed/link", handler.FeedLink)
}

func sendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
