// Package identity talks to the user service: phone lookups for inbound
// deposits and batch profile lookups for ledger enrichment.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/utils/remote"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const DefaultTimeout = 3 * time.Second

type Client struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient targets the user service at baseURL. An empty baseURL leaves
// the client unconfigured: every call fails with IDENTITY_UNAVAILABLE.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

type batchRequest struct {
	UserIDs []uint `json:"userIds"`
}

type batchItem struct {
	User struct {
		UserID uint   `json:"user_id"`
		Phone  string `json:"phone"`
	} `json:"user"`
	FullName string `json:"fullname"`
}

// BatchInfo returns the profiles the user service knows among userIDs.
// Unknown ids are simply absent from the result.
func (c *Client) BatchInfo(ctx context.Context, userIDs []uint) ([]models.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var items []batchItem
	if err := c.call(ctx, fiber.MethodPost, "/batch-info", batchRequest{UserIDs: userIDs}, &items); err != nil {
		return nil, err
	}

	profiles := make([]models.UserProfile, 0, len(items))
	for _, item := range items {
		if item.User.UserID == 0 {
			continue
		}
		profiles = append(profiles, models.UserProfile{
			UserID:   item.User.UserID,
			FullName: item.FullName,
			Phone:    item.User.Phone,
		})
	}
	return profiles, nil
}

// ResolvePhone returns the id of the user registered with phone.
func (c *Client) ResolvePhone(ctx context.Context, phone string) (uint, error) {
	var body struct {
		UserID uint `json:"user_id"`
	}
	err := c.call(ctx, fiber.MethodGet, "/phone/"+url.PathEscape(phone), nil, &body)
	if err != nil {
		return 0, err
	}
	if body.UserID == 0 {
		return 0, apperrors.ErrUserNotFound.WithMessage(fmt.Sprintf("no user registered for %s", phone))
	}
	return body.UserID, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, dest interface{}) error {
	if c.baseURL == "" {
		return apperrors.ErrIdentityUnavailable.WithMessage("user service is not configured")
	}
	resp, err := remote.Do(ctx, remote.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Body:    body,
		Timeout: c.timeout,
	})
	if err != nil {
		c.logger.Warn("user service call failed", zap.String("path", path), zap.Error(err))
		return apperrors.ErrIdentityUnavailable.WithMessage(fmt.Sprintf("user service unreachable: %v", err))
	}
	switch {
	case resp.Status == http.StatusNotFound:
		return apperrors.ErrUserNotFound
	case !resp.OK():
		c.logger.Warn("user service rejected call", zap.String("path", path), zap.Int("status", resp.Status))
		return apperrors.ErrIdentityUnavailable.WithMessage(
			fmt.Sprintf("user service answered %d", resp.Status))
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return apperrors.ErrIdentityUnavailable.WithMessage("malformed user service response")
	}
	return nil
}
