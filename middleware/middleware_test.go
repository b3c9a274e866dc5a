package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/utils"
)

const testSecret = "middleware-test-secret"

func newApp(extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append([]fiber.Handler{ProtectedWith(testSecret)}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		return c.JSON(fiber.Map{"id": actor.ID, "role": actor.Role})
	})
	app.Get("/whoami", handlers...)
	return app
}

func tokens(t *testing.T, role models.Role) utils.TokenPair {
	t.Helper()
	user := &models.User{Email: "someone@example.com", Role: role}
	user.ID = 7
	pair, err := utils.IssueTokens(testSecret, user, time.Hour, 24*time.Hour, time.Now())
	require.NoError(t, err)
	return pair
}

func get(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestProtected(t *testing.T) {
	app := newApp()
	pair := tokens(t, models.RoleClient)

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, ""))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "not-a-token"))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, pair.RefreshToken))
	assert.Equal(t, fiber.StatusOK, get(t, app, pair.Token))
}

func TestProtectedRejectsForeignSignature(t *testing.T) {
	user := &models.User{Email: "x@example.com", Role: models.RoleClient}
	user.ID = 1
	pair, err := utils.IssueTokens("another-secret", user, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, get(t, newApp(), pair.Token))
}

func TestRequireCapability(t *testing.T) {
	app := newApp(RequireCapability(models.CapRespondToRequest))

	assert.Equal(t, fiber.StatusForbidden, get(t, app, tokens(t, models.RoleClient).Token))
	assert.Equal(t, fiber.StatusOK, get(t, app, tokens(t, models.RoleCaregiver).Token))
}

func TestRequireRole(t *testing.T) {
	app := newApp(RequireRole(models.RoleAdmin))

	assert.Equal(t, fiber.StatusForbidden, get(t, app, tokens(t, models.RoleCaregiver).Token))
	assert.Equal(t, fiber.StatusOK, get(t, app, tokens(t, models.RoleAdmin).Token))
}
