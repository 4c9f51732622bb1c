package api

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/services"
	"go.uber.org/zap"
)

// FeedLink returns a subscribable calendar URL carrying a signed token.
func (handler *Handler) FeedLink(c *fiber.Ctx) error {
	token, expiresAt, err := handler.feed.Sign()
	if err != nil {
		handler.logger.Error("sign feed token", zap.Error(err))
		return handler.localizedError(c, fiber.StatusInternalServerError, "error.load_failed")
	}

	base := handler.publicURL
	if base == "" {
		base = c.BaseURL()
	}
	query := url.Values{}
	query.Set("token", token)
	query.Set("lang", handler.language(c))

	return c.JSON(fiber.Map{
		"url":       base + "/calendar.ics?" + query.Encode(),
		"expiresAt": expiresAt.UTC().Format(services.ExportTimestampLayout),
	})
}

func (handler *Handler) CalendarFeed(c *fiber.Ctx) error {
	client := feedClientKey(c)
	now := handler.now()
	if handler.feedGuard.blocked(client, now) {
		return handler.localizedError(c, fiber.StatusTooManyRequests, "error.too_many_attempts")
	}
	if err := handler.feed.Verify(c.Query("token")); err != nil {
		handler.feedGuard.fail(client, now)
		return handler.localizedError(c, fiber.StatusUnauthorized, "error.invalid_feed_token")
	}
	handler.feedGuard.forget(client)

	snapshot, err := handler.periods.Snapshot()
	if err != nil {
		return handler.serviceError(c, err)
	}

	lang := handler.language(c)
	labels := services.FeedLabels{
		CalendarName:    handler.i18n.Translate(lang, "feed.calendar_name"),
		LoggedPeriod:    handler.i18n.Translate(lang, "feed.period"),
		PredictedPeriod: handler.i18n.Translate(lang, "feed.predicted"),
		Ovulation:       handler.i18n.Translate(lang, "feed.ovulation"),
		FertileWindow:   handler.i18n.Translate(lang, "feed.fertile"),
	}
	payload, err := services.BuildCalendarFeed(snapshot, labels, handler.now())
	if err != nil {
		handler.logger.Error("build calendar feed", zap.Error(err))
		return handler.localizedError(c, fiber.StatusInternalServerError, "error.load_failed")
	}

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(payload)
}
