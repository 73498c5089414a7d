package quota

import (
	"fmt"

	"github.com/ajiwo/withdrawguard/utils"
)

// Option configures a Ledger.
type Option func(*Ledger) error

// WithBaseKey sets the prefix of every storage key written by the ledger.
func WithBaseKey(key string) Option {
	return func(l *Ledger) error {
		if err := utils.ValidateKey(key); err != nil {
			return fmt.Errorf("invalid base key: %w", err)
		}
		l.baseKey = key
		return nil
	}
}

// WithResetPolicy selects how a transaction opening a new window is checked.
func WithResetPolicy(policy ResetPolicy) Option {
	return func(l *Ledger) error {
		if policy != ResetUncapped && policy != ResetEnforced {
			return NewUnknownResetPolicyError(policy.String())
		}
		l.policy = policy
		return nil
	}
}

// WithMaxRetries bounds the number of optimistic commit attempts.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) error {
		if n <= 0 {
			return fmt.Errorf("max retries must be positive, got %d", n)
		}
		l.maxRetries = n
		return nil
	}
}
