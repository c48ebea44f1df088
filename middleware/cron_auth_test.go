package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"taxnexy/config"
)

func newCronApp() *fiber.App {
	app := fiber.New()
	app.Post("/run", CronAuth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestCronAuth(t *testing.T) {
	config.AppConfig.SequencerSecret = "test-scheduler-secret"
	app := newCronApp()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid secret", "Bearer test-scheduler-secret", http.StatusOK},
		{"wrong secret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "test-scheduler-secret", http.StatusUnauthorized},
		{"wrong scheme", "Basic test-scheduler-secret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/run", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestCronAuthEmptySecretNeverMatches(t *testing.T) {
	config.AppConfig.SequencerSecret = "test-scheduler-secret"
	app := newCronApp()

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
