package depositrecord

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrGlobalCapExceeded  = errors.New("global deposit cap exceeded")
	ErrAccountCapExceeded = errors.New("account deposit cap exceeded")
	ErrHookNotAllowed     = errors.New("caller is not an allowed hook")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCap         = errors.New("deposit cap cannot be negative")
	ErrNothingToRestore   = errors.New("no matching decrease to restore")
)

func NewCapExceededError(sentinel error, current, amount, limit decimal.Decimal) error {
	return fmt.Errorf("%w: %s + %s > %s", sentinel, current, amount, limit)
}

func NewHookNotAllowedError(caller string) error {
	return fmt.Errorf("%w: %q", ErrHookNotAllowed, caller)
}

func NewNothingToRestoreError(account string, amount decimal.Decimal) error {
	return fmt.Errorf("%w: %s of %q", ErrNothingToRestore, amount, account)
}
