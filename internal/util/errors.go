// internal/util/errors.go
package util

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common application-specific errors.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("operation not allowed in current escrow state")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment record not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
)

// IsError reports whether err matches target in its chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// InsufficientFundsError carries the amounts involved in a rejected debit.
// It matches ErrInsufficientFunds under errors.Is.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// NewInsufficientFundsError builds an InsufficientFundsError for the given amounts.
func NewInsufficientFundsError(required, available decimal.Decimal) error {
	return &InsufficientFundsError{Required: required, Available: available}
}
