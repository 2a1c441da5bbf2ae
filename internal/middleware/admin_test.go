package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlexPunches/1x-fit/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func adminApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/admin", AdminRequired(cfg), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func sign(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func status(t *testing.T, app *fiber.App, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/admin", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestAdminRequired(t *testing.T) {
	cfg := &config.Config{AdminToken: "s3cret", JWTSecret: "jwt-secret"}
	app := adminApp(cfg)

	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"no credentials", nil, fiber.StatusUnauthorized},
		{"admin token", map[string]string{"X-Admin-Token": "s3cret"}, fiber.StatusOK},
		{"wrong admin token", map[string]string{"X-Admin-Token": "nope"}, fiber.StatusUnauthorized},
		{"admin jwt", map[string]string{"Authorization": "Bearer " + sign(t, "jwt-secret", "admin")}, fiber.StatusOK},
		{"non-admin jwt", map[string]string{"Authorization": "Bearer " + sign(t, "jwt-secret", "viewer")}, fiber.StatusForbidden},
		{"foreign jwt", map[string]string{"Authorization": "Bearer " + sign(t, "other", "admin")}, fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := status(t, app, tc.headers); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAdminRequiredWithoutCredentialsConfigured(t *testing.T) {
	app := adminApp(&config.Config{})
	if got := status(t, app, map[string]string{"X-Admin-Token": ""}); got != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", got)
	}
	if got := status(t, app, map[string]string{"Authorization": "Bearer x"}); got != fiber.StatusUnauthorized {
		t.Fatalf("bearer without JWT_SECRET: status = %d, want 401", got)
	}
}
