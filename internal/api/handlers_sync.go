package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/backup"
	"go.uber.org/zap"
)

func (handler *Handler) SyncStatus(c *fiber.Ctx) error {
	if handler.sync == nil {
		return c.JSON(fiber.Map{"enabled": false})
	}
	status := handler.sync.Status()
	lang := handler.language(c)

	connection := "sync.disconnected"
	if status.Connected {
		connection = "sync.connected"
	}
	response := fiber.Map{
		"enabled":         true,
		"status":          status,
		"stateLabel":      handler.i18n.Translate(lang, "sync."+string(status.State)),
		"connectionLabel": handler.i18n.Translate(lang, connection),
	}
	if status.LastSyncedAt != "" {
		response["lastSyncedLabel"] = handler.i18n.TranslateData(lang, "sync.last_synced", map[string]any{"Time": status.LastSyncedAt})
	}
	return c.JSON(response)
}

func (handler *Handler) SyncNow(c *fiber.Ctx) error {
	if handler.sync == nil {
		return handler.localizedError(c, fiber.StatusServiceUnavailable, "error.sync_disabled")
	}
	if err := handler.sync.SyncNow(c.UserContext()); err != nil {
		return handler.syncError(c, err)
	}
	return c.JSON(fiber.Map{"status": handler.sync.Status()})
}

// SyncConnect stores a grant obtained by the client's OAuth flow and runs
// the startup download and weekly checks against it.
func (handler *Handler) SyncConnect(c *fiber.Ctx) error {
	if handler.sync == nil {
		return handler.localizedError(c, fiber.StatusServiceUnavailable, "error.sync_disabled")
	}
	input := connectInput{}
	if err := c.BodyParser(&input); err != nil || strings.TrimSpace(input.AccessToken) == "" {
		return handler.localizedError(c, fiber.StatusBadRequest, "error.invalid_input")
	}

	credential := backup.CredentialFromGrant(strings.TrimSpace(input.AccessToken), strings.TrimSpace(input.RefreshToken), input.ExpiresIn, handler.now())
	if err := handler.sync.Connect(c.UserContext(), credential); err != nil {
		return handler.syncError(c, err)
	}
	return c.JSON(fiber.Map{"status": handler.sync.Status()})
}

func (handler *Handler) SyncDisconnect(c *fiber.Ctx) error {
	if handler.sync == nil {
		return handler.localizedError(c, fiber.StatusServiceUnavailable, "error.sync_disabled")
	}
	if err := handler.sync.Disconnect(); err != nil {
		handler.logger.Warn("disconnect backup", zap.Error(err))
	}
	return c.JSON(fiber.Map{"status": handler.sync.Status()})
}

func (handler *Handler) syncError(c *fiber.Ctx, err error) error {
	if errors.Is(err, backup.ErrSyncInProgress) {
		return handler.localizedError(c, fiber.StatusConflict, "error.sync_in_progress")
	}
	handler.logger.Warn("backup sync failed", zap.Error(err))
	return handler.localizedError(c, fiber.StatusBadGateway, "error.sync_failed")
}
