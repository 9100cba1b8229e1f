package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"token-reward-service/utils"
)

// GatewayAuthMiddleware validates the Bearer token from the Gateway. When
// GATEWAY_TOKEN is unset the service runs open (direct deployments without a
// gateway in front).
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("GATEWAY_TOKEN")
	if expectedToken == "" {
		utils.Sugar.Warn("GATEWAY_TOKEN not set, gateway authentication disabled")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Parse "Bearer <token>"; fall back to the raw header value.
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			utils.Sugar.Warnw("rejected request with invalid gateway token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
