package api

import "github.com/gofiber/fiber/v2"

// LanguageMiddleware resolves the response language from the lang query
// parameter, then Accept-Language.
func (handler *Handler) LanguageMiddleware(c *fiber.Ctx) error {
	language := handler.i18n.DetectFromAcceptLanguage(c.Get("Accept-Language"))
	if requested := c.Query("lang"); requested != "" {
		language = handler.i18n.NormalizeLanguage(requested)
	}
	c.Locals(contextLanguageKey, language)
	return c.Next()
}

func (handler *Handler) translate(c *fiber.Ctx, key string) string {
	return handler.i18n.Translate(handler.language(c), key)
}

func (handler *Handler) language(c *fiber.Ctx) string {
	if language := currentLanguage(c); language != "" {
		return language
	}
	return handler.i18n.DefaultLanguage()
}
