package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"taxnexy/config"
)

// CronAuth guards the sequencer trigger with the shared scheduler
// secret (bearer-token style). The secret is required config, so an
// empty header never matches.
func CronAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.AppConfig.SequencerSecret

		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && tokenParts[0] == "Bearer" {
				token = tokenParts[1]
			}
		}

		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid scheduler credential",
			})
		}

		return c.Next()
	}
}
