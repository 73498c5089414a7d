package withdrawguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajiwo/withdrawguard/access"
	"github.com/ajiwo/withdrawguard/backends"
	"github.com/ajiwo/withdrawguard/quota"
	"github.com/shopspring/decimal"
)

var (
	ErrDisabled             = errors.New("withdrawals not allowed")
	ErrUnauthorized         = errors.New("caller not authorized")
	ErrGlobalLimitExceeded  = quota.ErrGlobalLimitExceeded
	ErrAccountLimitExceeded = quota.ErrAccountLimitExceeded
	ErrCollaboratorFailure  = errors.New("collaborator failure")

	// ErrCompensationFailed marks a collaborator call that could not be undone
	// after a later step of the same withdrawal failed.
	ErrCompensationFailed = errors.New("compensation failed")

	// Input errors
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrZeroAddress     = errors.New("zero address")
	ErrNilCollaborator = errors.New("collaborator not set")
	ErrNilPolicy       = errors.New("authorization policy is required")
)

// Reason codes.
const (
	reasonAccepted             = "accepted"
	reasonDisabled             = "disabled"
	reasonUnauthorized         = "unauthorized"
	reasonCollaboratorFailure  = "collaborator_failure"
	reasonGlobalLimitExceeded  = "global_limit_exceeded"
	reasonAccountLimitExceeded = "account_limit_exceeded"
	reasonInvalidAmount        = "invalid_amount"
	reasonInvalidAccount       = "invalid_account"
	reasonCanceled             = "canceled"
	reasonBackendUnavailable   = "backend_unavailable"
	reasonInternalError        = "internal_error"
)

// NewUnauthorizedCallerError reports a Hook call from something other than
// the collateral.
func NewUnauthorizedCallerError(caller Address) error {
	return fmt.Errorf("%w: %q is not the collateral", ErrUnauthorized, caller)
}

// NewMissingCapabilityError reports a setter call by a caller without c.
func NewMissingCapabilityError(caller Address, c access.Capability) error {
	return fmt.Errorf("%w: %q lacks %s", ErrUnauthorized, caller, c)
}

// NewInvalidAmountError reports a pre-fee/post-fee pair Hook cannot accept.
func NewInvalidAmountError(preFee, postFee decimal.Decimal) error {
	return fmt.Errorf("%w: pre-fee %s, post-fee %s", ErrInvalidAmount, preFee, postFee)
}

// NewInvalidAccountError reports an account that cannot be used as a quota key.
func NewInvalidAccountError(account Address, cause error) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidAccount, account, cause)
}

// NewZeroAddressError reports a zero address given for field.
func NewZeroAddressError(field string) error {
	return fmt.Errorf("%w: %s", ErrZeroAddress, field)
}

// NewNilCollaboratorError reports a required collaborator that is not set.
func NewNilCollaboratorError(name string) error {
	return fmt.Errorf("%w: %s", ErrNilCollaborator, name)
}

// NewCollaboratorError wraps the failure of the named collaborator.
func NewCollaboratorError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCollaboratorFailure, name, err)
}

// NewCompensationError wraps the failure to undo a call of the named collaborator.
func NewCompensationError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCompensationFailed, name, err)
}

// Reason maps a Hook result to a stable code, suitable as a metric label.
func Reason(err error) string {
	switch {
	case err == nil:
		return reasonAccepted
	case errors.Is(err, ErrDisabled):
		return reasonDisabled
	case errors.Is(err, ErrUnauthorized):
		return reasonUnauthorized
	case errors.Is(err, ErrCollaboratorFailure):
		return reasonCollaboratorFailure
	case errors.Is(err, ErrGlobalLimitExceeded):
		return reasonGlobalLimitExceeded
	case errors.Is(err, ErrAccountLimitExceeded):
		return reasonAccountLimitExceeded
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, quota.ErrInvalidAmount):
		return reasonInvalidAmount
	case errors.Is(err, ErrInvalidAccount):
		return reasonInvalidAccount
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return reasonCanceled
	case backends.IsHealthError(err):
		return reasonBackendUnavailable
	default:
		return reasonInternalError
	}
}
