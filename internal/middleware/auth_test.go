package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyedApp(key string) *fiber.App {
	app := fiber.New()
	app.Post("/guarded", RequireKey(key), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestRequireKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{"Matching key passes", "secret", "secret", fiber.StatusNoContent},
		{"Missing key rejected", "secret", "", fiber.StatusUnauthorized},
		{"Wrong key rejected", "secret", "guess", fiber.StatusUnauthorized},
		{"Unconfigured key leaves route open", "", "", fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := keyedApp(tt.configured)
			req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
			if tt.sent != "" {
				req.Header.Set("X-API-Key", tt.sent)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
