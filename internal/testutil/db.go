// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"testing"

	"walletsaga/internal/config"
	"walletsaga/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns an in-memory sqlite database with both services' schemas.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := repositories.Open(config.DBConfig{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repositories.MigrateLedger(db))
	require.NoError(t, repositories.MigrateOrchestrator(db))
	t.Cleanup(func() {
		_ = repositories.Close(db)
	})
	return db
}

// AssertAmount compares amounts numerically.
func AssertAmount(t testing.TB, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	expected := decimal.RequireFromString(want)
	assert.Truef(t, expected.Equal(got), "want amount %s, got %s %v", expected, got, msgAndArgs)
}

// Amount parses a literal amount.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
