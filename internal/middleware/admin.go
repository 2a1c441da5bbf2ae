package middleware

import (
	"crypto/subtle"

	"github.com/AlexPunches/1x-fit/internal/config"
	"github.com/AlexPunches/1x-fit/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminRequired accepts either the X-Admin-Token header or, when JWT_SECRET is
// set, a bearer token whose role claim is "admin".
func AdminRequired(cfg *config.Config) fiber.Handler {
	var bearer fiber.Handler
	if cfg.JWTSecret != "" {
		bearer = jwtware.New(jwtware.Config{
			SigningKey:     jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
			SuccessHandler: requireAdminRole,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error: true, Message: "Unauthorized: invalid or expired token",
				})
			},
		})
	}

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			got := c.Get("X-Admin-Token")
			if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AdminToken)) == 1 {
				return c.Next()
			}
		}

		if bearer != nil && c.Get(fiber.HeaderAuthorization) != "" {
			return bearer(c)
		}

		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
}

func requireAdminRole(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid claims",
		})
	}
	if role, _ := claims["role"].(string); role == "admin" {
		return c.Next()
	}
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Error: true, Message: "Admin access required",
	})
}
