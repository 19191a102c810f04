package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/utils/remote"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HTTPClient calls a remote ledger engine. Errors returned by the engine
// come back as the same *errors.DomainError (code, message and status);
// transport failures and timeouts become LEDGER_UNAVAILABLE.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPClient targets the API mounted at baseURL, e.g.
// http://ledger:8080/api/v1.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

func (c *HTTPClient) Credit(ctx context.Context, req OperationRequest) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := c.call(ctx, fiber.MethodPost, "/wallets/credit", req, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *HTTPClient) Debit(ctx context.Context, req OperationRequest) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := c.call(ctx, fiber.MethodPost, "/wallets/debit", req, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *HTTPClient) Compensate(ctx context.Context, req CompensationRequest) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := c.call(ctx, fiber.MethodPost, "/wallets/compensate", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *HTTPClient) GetBalance(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := c.call(ctx, fiber.MethodGet, fmt.Sprintf("/wallets/%d/balance", userID), nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *HTTPClient) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := c.call(ctx, fiber.MethodGet, fmt.Sprintf("/wallets/id/%d", walletID), nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body, dest interface{}) error {
	resp, err := remote.Do(ctx, remote.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Body:    body,
		Timeout: c.timeout,
	})
	if err != nil {
		c.logger.Warn("ledger call failed", zap.String("path", path), zap.Error(err))
		return apperrors.ErrLedgerUnavailable.WithMessage(fmt.Sprintf("ledger unreachable: %v", err))
	}
	if !resp.OK() {
		return remoteError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		c.logger.Warn("malformed ledger response", zap.String("path", path), zap.Error(err))
		return apperrors.ErrLedgerUnavailable.WithMessage("malformed ledger response")
	}
	return nil
}

// ErrorBody is the JSON error shape shared by both services.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind"`
}

func remoteError(resp *remote.Response) error {
	var body ErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Code == "" {
		msg := strings.TrimSpace(string(resp.Body))
		if msg == "" {
			msg = http.StatusText(resp.Status)
		}
		return apperrors.New(apperrors.KindDependencyFailure, "LEDGER_ERROR", msg, resp.Status)
	}
	return apperrors.New(apperrors.Kind(body.Kind), body.Code, body.Error, resp.Status)
}
