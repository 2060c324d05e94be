package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	ApiKeyHeader = "X-API-Key"
	localApiKey  = "api_key"
)

// ApiKeyMiddleware requires the widget key header. Resolving the key to a
// user is left to the handler so lookups can be cached.
func ApiKeyMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		key := strings.TrimSpace(ctx.Get(ApiKeyHeader))
		if key == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing API key"))
		}
		ctx.Locals(localApiKey, key)
		return ctx.Next()
	}
}

func ApiKey(ctx *fiber.Ctx) string {
	key, _ := ctx.Locals(localApiKey).(string)
	return key
}
