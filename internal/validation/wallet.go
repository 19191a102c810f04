package validation

import (
	"fmt"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"

	"github.com/shopspring/decimal"
)

// MaxAmountDecimals is the precision of every stored amount.
const MaxAmountDecimals = 2

// Amount checks that amount is strictly positive and representable without
// rounding.
func Amount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount.WithMessage("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(MaxAmountDecimals)) {
		return apperrors.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("amount must have at most %d decimals", MaxAmountDecimals))
	}
	return nil
}

// WalletStatus checks that status is one a wallet can be moved to.
func WalletStatus(status string) error {
	switch status {
	case models.WalletStatusActive, models.WalletStatusSuspended, models.WalletStatusClosed:
		return nil
	}
	return apperrors.ErrValidation.WithMessage(fmt.Sprintf("unknown wallet status %q", status))
}
