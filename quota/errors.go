package quota

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrGlobalLimitExceeded  = errors.New("global withdraw limit exceeded")
	ErrAccountLimitExceeded = errors.New("account withdraw limit exceeded")

	// Configuration errors
	ErrNilBackend         = errors.New("quota ledger requires a storage backend")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrUnknownResetPolicy = errors.New("unknown reset policy")

	// State operation errors
	ErrStateParsing     = errors.New("failed to parse quota window state: invalid encoding")
	ErrConcurrentAccess = errors.New("failed to update quota windows after max attempts due to concurrent access")
	ErrRevertConflict   = errors.New("quota window changed since commit")
)

// LimitError describes a rejected transaction. It matches
// ErrGlobalLimitExceeded or ErrAccountLimitExceeded through errors.Is.
type LimitError struct {
	Scope  Scope
	Spent  decimal.Decimal // running total before the transaction
	Amount decimal.Decimal
	Limit  decimal.Decimal
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s + %s > %s", e.Unwrap(), e.Spent, e.Amount, e.Limit)
}

func (e *LimitError) Unwrap() error {
	if e.Scope == ScopeGlobal {
		return ErrGlobalLimitExceeded
	}
	return ErrAccountLimitExceeded
}

func newLimitError(o Outcome, amount decimal.Decimal) error {
	spent := o.Before.Spent
	if o.Reset {
		spent = decimal.Zero
	}
	return &LimitError{
		Scope:  o.Scope,
		Spent:  spent,
		Amount: amount,
		Limit:  o.Limit.Amount,
	}
}

func NewUnknownResetPolicyError(policy string) error {
	return fmt.Errorf("%w: %q", ErrUnknownResetPolicy, policy)
}

func NewInvalidAmountError(amount decimal.Decimal) error {
	return fmt.Errorf("%w, got %s", ErrInvalidAmount, amount)
}

func NewStateRetrievalError(key string, err error) error {
	return fmt.Errorf("failed to get quota window '%s': %w", key, err)
}

func NewStateParsingError(key string) error {
	return fmt.Errorf("%w for key '%s'", ErrStateParsing, key)
}

func NewStateSaveError(key string, err error) error {
	return fmt.Errorf("failed to save quota window '%s': %w", key, err)
}

func NewStateUpdateError(attempts int) error {
	return fmt.Errorf("%w (%d attempts)", ErrConcurrentAccess, attempts)
}

func NewRevertConflictError(key string) error {
	return fmt.Errorf("%w: '%s'", ErrRevertConflict, key)
}

func NewRevertFailedError(key string, err error) error {
	return fmt.Errorf("failed to revert quota window '%s': %w", key, err)
}

func NewContextCanceledError(err error) error {
	return fmt.Errorf("context canceled or timed out: %w", err)
}
