package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgError "github.com/AzielCF/az-typing/pkg/error"
	"github.com/AzielCF/az-typing/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	app := fiber.New()
	app.Use(Recovery())
	app.Get("/validation", func(c *fiber.Ctx) error {
		panic(pkgError.ValidationError("op: cannot be blank."))
	})
	app.Get("/unknown", func(c *fiber.Ctx) error {
		panic("boom")
	})

	tests := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/validation", http.StatusBadRequest, "VALIDATION_ERROR", "op: cannot be blank."},
		{"/unknown", http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body utils.ResponseData
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
