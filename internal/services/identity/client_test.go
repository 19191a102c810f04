package identity_test

import (
	"context"
	"testing"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/services/identity"
	"walletsaga/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userService(t *testing.T) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/users/batch-info", func(c *fiber.Ctx) error {
		var req struct {
			UserIDs []uint `json:"userIds"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		out := []fiber.Map{}
		for _, id := range req.UserIDs {
			if id == 7 {
				out = append(out, fiber.Map{
					"user":     fiber.Map{"user_id": 7, "phone": "+51999888777"},
					"fullname": "Ana Quispe",
				})
			}
		}
		return c.JSON(out)
	})
	app.Get("/users/phone/:phone", func(c *fiber.Ctx) error {
		if c.Params("phone") == "999888777" {
			return c.JSON(fiber.Map{"user_id": 7})
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	app.Get("/broken/phone/:phone", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})
	return testutil.Serve(t, app)
}

func TestClient_BatchInfo(t *testing.T) {
	base := userService(t)
	client := identity.NewClient(base+"/users", time.Second, nil)

	profiles, err := client.BatchInfo(context.Background(), []uint{7, 8})
	require.NoError(t, err)
	assert.Equal(t, []models.UserProfile{{UserID: 7, FullName: "Ana Quispe", Phone: "+51999888777"}}, profiles)

	none, err := client.BatchInfo(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClient_ResolvePhone(t *testing.T) {
	base := userService(t)
	client := identity.NewClient(base+"/users", time.Second, nil)

	id, err := client.ResolvePhone(context.Background(), "999888777")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	_, err = client.ResolvePhone(context.Background(), "111")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestClient_Unavailable(t *testing.T) {
	base := userService(t)

	_, err := identity.NewClient(base+"/broken", time.Second, nil).ResolvePhone(context.Background(), "1")
	assert.ErrorIs(t, err, apperrors.ErrIdentityUnavailable)

	_, err = identity.NewClient("", time.Second, nil).BatchInfo(context.Background(), []uint{1})
	assert.ErrorIs(t, err, apperrors.ErrIdentityUnavailable)

	// nothing listens on port 1
	_, err = identity.NewClient("http://127.0.0.1:1", 200*time.Millisecond, nil).ResolvePhone(context.Background(), "1")
	assert.ErrorIs(t, err, apperrors.ErrIdentityUnavailable)
}
