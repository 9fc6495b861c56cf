package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/ake144/e-tutor/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	TokenCookieName = "token"
	ClaimsLocal     = "claims"
)

// AuthRequired accepts a Bearer header or the token cookie set at login.
func AuthRequired(secret string, blacklist *utils.TokenBlacklist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := extractToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil || blacklist.IsRevoked(claims.ID) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals(ClaimsLocal, claims)

		return c.Next()
	}
}

// RequireRole must run after AuthRequired.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if current, _ := c.Locals("role").(string); current != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
		return c.Next()
	}
}

// InternalSecret guards service-to-service routes such as payment confirmation.
func InternalSecret(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-Internal-Secret")
		if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Internal access denied!"})
		}
		return c.Next()
	}
}

type tokenError string

func (e tokenError) Error() string { return string(e) }

func extractToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if cookie := c.Cookies(TokenCookieName); cookie != "" {
			return cookie, nil
		}
		if query := c.Query("token"); query != "" && strings.HasPrefix(c.Path(), "/api/v1/ws/") {
			return query, nil
		}
		return "", tokenError("Missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", tokenError("Invalid authorization header format")
	}
	return parts[1], nil
}
