package transfer_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/services/saga"
	"walletsaga/internal/services/transfer"
	"walletsaga/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type centralCall struct {
	body   map[string]interface{}
	auth   string
	wallet string
}

type centralLog struct {
	mu    sync.Mutex
	calls []centralCall
}

func (l *centralLog) all() []centralCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]centralCall(nil), l.calls...)
}

func centralAPI(t *testing.T, log *centralLog) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/api/v1/sendTransfer", func(c *fiber.Ctx) error {
		var body map[string]interface{}
		if err := c.BodyParser(&body); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		log.mu.Lock()
		log.calls = append(log.calls, centralCall{
			body:   body,
			auth:   c.Get(fiber.HeaderAuthorization),
			wallet: c.Get(transfer.WalletTokenHeader),
		})
		log.mu.Unlock()
		switch body["toIdentifier"] {
		case "000":
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "destination not registered"})
		case "500":
			return c.Status(fiber.StatusInternalServerError).SendString("boom")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"userName": "Ever Ccencho", "toAppName": "PIXEL MONEY"},
		})
	})
	return testutil.Serve(t, app)
}

func TestCentralClient_SendTransfer(t *testing.T) {
	log := &centralLog{}
	base := centralAPI(t, log)
	client := transfer.NewCentralClient(base+"/api/v1", "wallet-token", time.Second, nil)

	receipt, err := client.SendTransfer(context.Background(), saga.ClearingRequest{
		From:   "999344881",
		To:     "988777666",
		App:    "PIXEL MONEY",
		Amount: testutil.Amount("12.50"),
	}, "Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, &saga.ClearingReceipt{UserName: "Ever Ccencho", AppName: "PIXEL MONEY"}, receipt)

	calls := log.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer abc", calls[0].auth)
	assert.Equal(t, "wallet-token", calls[0].wallet)
	assert.Equal(t, "999344881", calls[0].body["fromIdentifier"])
	assert.Equal(t, "988777666", calls[0].body["toIdentifier"])
	assert.Equal(t, "PIXEL MONEY", calls[0].body["toAppName"])
	assert.Equal(t, 12.5, calls[0].body["amount"])
}

func TestCentralClient_Rejections(t *testing.T) {
	base := centralAPI(t, &centralLog{})
	client := transfer.NewCentralClient(base+"/api/v1", "wallet-token", time.Second, nil)

	tests := []struct {
		name       string
		to         string
		wantStatus int
		wantMsg    string
	}{
		{name: "client error keeps status", to: "000", wantStatus: http.StatusNotFound, wantMsg: "destination not registered"},
		{name: "server error is a bad gateway", to: "500", wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SendTransfer(context.Background(), saga.ClearingRequest{
				From: "1", To: tt.to, App: "X", Amount: testutil.Amount("1"),
			}, "Bearer abc")
			require.ErrorIs(t, err, apperrors.ErrClearingFailed)
			de, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, de.HTTPStatus())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, de.Message)
			}
		})
	}
}

func TestCentralClient_Unreachable(t *testing.T) {
	client := transfer.NewCentralClient("http://127.0.0.1:1", "", 200*time.Millisecond, nil)
	_, err := client.SendTransfer(context.Background(), saga.ClearingRequest{Amount: testutil.Amount("1")}, "")
	assert.ErrorIs(t, err, apperrors.ErrClearingFailed)
}
