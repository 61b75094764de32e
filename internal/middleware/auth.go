// Package middleware provides the fiber middleware used by the API:
// bearer-token authentication, request logging and prometheus metrics.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/evenup/evenup/internal/auth"
)

// Locals keys set by the auth middleware.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// UserID extracts the authenticated user ID from the request context.
// Returns empty string if the request was not authenticated.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

// Email extracts the authenticated user's email from the request context.
func Email(c *fiber.Ctx) string {
	email, _ := c.Locals(EmailKey).(string)
	return email
}

// RequireAuth validates bearer access tokens and stores the user identity
// in the request locals. Requests without a valid token get 401.
func RequireAuth(jwtManager *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
		}

		claims, err := jwtManager.Validate(tokenString, auth.TokenAccess)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": auth.ErrInvalidToken.Error()})
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(EmailKey, claims.Email)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", auth.ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}
