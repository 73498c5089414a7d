package withdrawguard

import (
	"fmt"
	"time"

	"github.com/ajiwo/withdrawguard/access"
	"github.com/ajiwo/withdrawguard/backends"
	"github.com/ajiwo/withdrawguard/quota"
	"github.com/rs/zerolog"
)

type options struct {
	storage    backends.Backend
	policy     access.Policy
	now        func() time.Time
	logger     zerolog.Logger
	metrics    *Metrics
	ledgerOpts []quota.Option
}

// Option is a functional option for configuring the guard
type Option func(*options) error

// WithBackend sets the storage holding the quota windows.
// Without it the guard keeps its windows in memory.
func WithBackend(storage backends.Backend) Option {
	return func(o *options) error {
		if storage == nil {
			return quota.ErrNilBackend
		}
		o.storage = storage
		return nil
	}
}

// WithPolicy sets the authorization policy consulted by every setter. Required.
func WithPolicy(policy access.Policy) Option {
	return func(o *options) error {
		if policy == nil {
			return ErrNilPolicy
		}
		o.policy = policy
		return nil
	}
}

// WithClock replaces time.Now as the source of window timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithMetrics records hook results in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithResetPolicy selects how the first withdrawal of a new window is checked.
// The default, quota.ResetUncapped, records it without comparing it to the limit.
func WithResetPolicy(policy quota.ResetPolicy) Option {
	return func(o *options) error {
		o.ledgerOpts = append(o.ledgerOpts, quota.WithResetPolicy(policy))
		return nil
	}
}

// WithBaseKey sets the storage key prefix, so several guards can share a backend.
func WithBaseKey(key string) Option {
	return func(o *options) error {
		o.ledgerOpts = append(o.ledgerOpts, quota.WithBaseKey(key))
		return nil
	}
}

// WithMaxRetries bounds the optimistic commit attempts against a contended backend.
func WithMaxRetries(n int) Option {
	return func(o *options) error {
		o.ledgerOpts = append(o.ledgerOpts, quota.WithMaxRetries(n))
		return nil
	}
}
