package middleware

import (
	"crypto/subtle"
	"strings"

	"walletsaga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// B2BKeyHeader carries the shared secret of partner banks.
const B2BKeyHeader = "x-wallet-b2b-key"

// B2BKey admits requests presenting the partner secret. secret may be the
// plain value or its bcrypt hash (see `seed b2b-hash`).
func B2BKey(secret string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	hashed := strings.HasPrefix(secret, "$2")

	return func(c *fiber.Ctx) error {
		if secret == "" {
			logger.Error("B2B secret is not configured, rejecting inbound transfer")
			return utils.InternalError(c, "server configuration error")
		}

		received := c.Get(B2BKeyHeader)
		if received == "" {
			return utils.Unauthorized(c, "missing header " + B2BKeyHeader)
		}

		if !b2bKeyMatches(secret, received, hashed) {
			logger.Warn("rejected inbound transfer with wrong B2B key", zap.String("ip", c.IP()))
			return utils.Forbidden(c, "invalid B2B key")
		}
		return c.Next()
	}
}

func b2bKeyMatches(secret, received string, hashed bool) bool {
	if hashed {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(received)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(received)) == 1
}
