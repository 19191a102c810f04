// Package middleware provides HTTP middleware components for the application.
// It includes authentication and authorization middleware that can be used
// with the fiber web framework.
package middleware

import (
	"fmt"
	"strings"

	"walletsaga/internal/models"
	"walletsaga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ClaimsKey is the Locals key holding *models.UserClaims.
const ClaimsKey = "claims"

// JWT validates HMAC signed bearer tokens and adds the claims to the request
// context. The raw Authorization header is left in place so handlers can
// forward it to downstream services.
func JWT(secret string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return utils.Unauthorized(c, "missing authorization header")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return utils.Unauthorized(c, "invalid authorization format")
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, keyFunc)
		if err != nil || !token.Valid {
			logger.Debug("token rejected", zap.String("ip", c.IP()), zap.Error(err))
			return utils.Unauthorized(c, "invalid or expired token")
		}

		claims, ok := token.Claims.(*models.UserClaims)
		if !ok {
			return utils.Unauthorized(c, "invalid claims")
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// AdminOnly rejects requests whose claims do not carry the admin role.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals(ClaimsKey).(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if !claims.IsAdmin() {
		return utils.Forbidden(c, "insufficient permissions")
	}
	return c.Next()
}

// Claims returns the authenticated caller, if any.
func Claims(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*models.UserClaims)
	return claims, ok && claims != nil
}
