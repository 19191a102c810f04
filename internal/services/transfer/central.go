// Package transfer moves money across the bank boundary: outbound transfers
// through the central clearing house and inbound deposits pushed by it.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/services/saga"
	"walletsaga/internal/utils/remote"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WalletTokenHeader identifies this wallet app to the clearing house.
const WalletTokenHeader = "x-wallet-token"

// CentralClient sends interbank transfers to the central clearing API.
type CentralClient struct {
	baseURL     string
	walletToken string
	timeout     time.Duration
	logger      *zap.Logger
}

func NewCentralClient(baseURL, walletToken string, timeout time.Duration, logger *zap.Logger) *CentralClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CentralClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		walletToken: walletToken,
		timeout:     timeout,
		logger:      logger,
	}
}

type centralResponse struct {
	Data    saga.ClearingReceipt `json:"data"`
	Message string               `json:"message"`
	Error   string               `json:"error"`
}

// SendTransfer forwards req with the caller's authorization. Rejections keep
// the clearing house's 4xx status; anything else answers 502.
func (c *CentralClient) SendTransfer(ctx context.Context, req saga.ClearingRequest, authToken string) (*saga.ClearingReceipt, error) {
	resp, err := remote.Do(ctx, remote.Request{
		Method: fiber.MethodPost,
		URL:    c.baseURL + "/sendTransfer",
		Body:   req,
		Headers: map[string]string{
			fiber.HeaderAuthorization: authToken,
			WalletTokenHeader:         c.walletToken,
		},
		Timeout: c.timeout,
	})
	if err != nil {
		c.logger.Warn("clearing house unreachable", zap.Error(err))
		return nil, apperrors.ErrClearingFailed.WithMessage(fmt.Sprintf("clearing house unreachable: %v", err))
	}

	var body centralResponse
	decodeErr := json.Unmarshal(resp.Body, &body)
	if !resp.OK() {
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.Status)
		}
		status := http.StatusBadGateway
		if resp.Status >= 400 && resp.Status < 500 {
			status = resp.Status
		}
		c.logger.Info("clearing house rejected transfer",
			zap.Int("status", resp.Status), zap.String("message", msg), zap.String("to_app", req.App))
		return nil, apperrors.ErrClearingFailed.WithMessage(msg).WithStatus(status)
	}
	if decodeErr != nil {
		// the transfer went through; only the display name is lost
		c.logger.Warn("unreadable clearing receipt", zap.Error(decodeErr))
		return &saga.ClearingReceipt{AppName: req.App}, nil
	}
	return &body.Data, nil
}
