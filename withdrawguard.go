// Package withdrawguard gates outbound asset transfers behind two
// periodically resetting quotas, one shared by all accounts and one per
// account, and strips the transfer fee on the way out.
//
// The collateral component calls Guard.Hook for every withdrawal. The guard
// checks and records the pre-fee amount against both quotas, decreases the
// recorded deposit of the account, and routes the fee to the treasury.
// Configuration changes go through setters gated by an access.Policy.
package withdrawguard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ajiwo/withdrawguard/access"
	"github.com/ajiwo/withdrawguard/backends"
	"github.com/ajiwo/withdrawguard/backends/memory"
	"github.com/ajiwo/withdrawguard/quota"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Guard is the withdrawal hook. Hook calls are serialized.
type Guard struct {
	hookMu sync.Mutex

	mu       sync.RWMutex // guards settings
	settings settings

	storage backends.Backend
	ledger  *quota.Ledger
	policy  access.Policy
	now     func() time.Time
	logger  zerolog.Logger
	metrics *Metrics
}

// settings is the mutable configuration of a guard. A new guard starts
// disabled, with zero limits and zero-length periods.
type settings struct {
	enabled       bool
	globalLimit   decimal.Decimal
	accountLimit  decimal.Decimal
	globalPeriod  time.Duration
	accountPeriod time.Duration
	collateral    Address
	asset         Address
	treasury      Address
	depositLedger DepositLedger
	feeRouter     FeeRouter
	tokenSender   TokenSender
}

func (s settings) limits() quota.Limits {
	return quota.Limits{
		Global:  quota.Limit{Amount: s.globalLimit, Period: s.globalPeriod},
		Account: quota.Limit{Amount: s.accountLimit, Period: s.accountPeriod},
	}
}

// New creates a guard. WithPolicy is required.
func New(opts ...Option) (*Guard, error) {
	o := options{
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if o.policy == nil {
		return nil, ErrNilPolicy
	}
	if o.storage == nil {
		o.storage = memory.New()
	}

	ledger, err := quota.New(o.storage, o.ledgerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota ledger: %w", err)
	}

	return &Guard{
		storage: o.storage,
		ledger:  ledger,
		policy:  o.policy,
		now:     o.now,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Hook authorizes a withdrawal of preFee by account, of which postFee
// reaches the account and the difference is the fee.
//
// The withdrawal is rejected when the guard is disabled, when caller is not
// the registered collateral, or when preFee would exceed the global or the
// account quota of the current period. An accepted withdrawal is recorded in
// both quotas, decreases the recorded deposit of account by preFee and routes
// the fee to the treasury. If any collaborator fails, the calls already made
// are undone, the quotas are restored and the error wraps
// ErrCollaboratorFailure.
func (g *Guard) Hook(ctx context.Context, caller, account Address, preFee, postFee decimal.Decimal) error {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()

	s := g.snapshot()
	receipt, err := g.hook(ctx, s, caller, account, preFee, postFee)

	log := g.logger.With().
		Str("account", account.String()).
		Str("pre_fee", preFee.String()).
		Str("post_fee", postFee.String()).
		Logger()

	if err != nil {
		reason := Reason(err)
		g.metrics.observeRejected(reason)
		log.WithLevel(rejectionLevel(reason)).Err(err).Str("reason", reason).Msg("withdrawal rejected")
		return err
	}

	fee := preFee.Sub(postFee)
	g.metrics.observeAccepted(preFee, fee, receipt.Global.After.Spent)
	log.Debug().
		Str("global_spent", receipt.Global.After.Spent.String()).
		Str("account_spent", receipt.PerAccount.After.Spent.String()).
		Bool("global_reset", receipt.Global.Reset).
		Bool("account_reset", receipt.PerAccount.Reset).
		Msg("withdrawal accepted")
	return nil
}

// rejectionLevel logs ordinary refusals at info and failures of the guard
// or its dependencies at error.
func rejectionLevel(reason string) zerolog.Level {
	switch reason {
	case reasonCollaboratorFailure, reasonInternalError, reasonBackendUnavailable:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (g *Guard) hook(ctx context.Context, s settings, caller, account Address, preFee, postFee decimal.Decimal) (quota.Receipt, error) {
	if !s.enabled {
		return quota.Receipt{}, ErrDisabled
	}
	if caller.IsZero() || caller != s.collateral {
		return quota.Receipt{}, NewUnauthorizedCallerError(caller)
	}
	if !preFee.IsPositive() || postFee.IsNegative() || postFee.GreaterThan(preFee) {
		return quota.Receipt{}, NewInvalidAmountError(preFee, postFee)
	}
	if err := validateAccount(account); err != nil {
		return quota.Receipt{}, err
	}
	if s.depositLedger == nil {
		return quota.Receipt{}, NewCollaboratorError("deposit ledger", ErrNilCollaborator)
	}
	fee := preFee.Sub(postFee)
	if fee.IsPositive() && s.feeRouter == nil {
		return quota.Receipt{}, NewCollaboratorError("fee router", ErrNilCollaborator)
	}

	receipt, err := g.ledger.CheckAndRecord(ctx, string(account), preFee, s.limits(), g.now())
	if err != nil {
		return quota.Receipt{}, err
	}

	if err := g.settle(ctx, s, account, preFee, fee); err != nil {
		// quota is ours to restore even if ctx is already done
		if revertErr := g.ledger.Revert(context.WithoutCancel(ctx), receipt); revertErr != nil {
			return quota.Receipt{}, multierror.Append(err, revertErr)
		}
		return quota.Receipt{}, err
	}
	return receipt, nil
}

// settle runs the collaborator side of an accepted withdrawal. When a step
// fails, the steps already taken are undone in reverse order.
func (g *Guard) settle(ctx context.Context, s settings, account Address, preFee, fee decimal.Decimal) error {
	if err := s.depositLedger.DecreaseRecordedDeposit(ctx, account, preFee); err != nil {
		return NewCollaboratorError("deposit ledger", err)
	}
	done := []compensation{{"deposit ledger", func(ctx context.Context) error {
		return s.depositLedger.RestoreRecordedDeposit(ctx, account, preFee)
	}}}

	if !fee.IsPositive() {
		return nil
	}
	if err := s.feeRouter.RouteFee(ctx, s.asset, fee, s.treasury); err != nil {
		return compensate(ctx, NewCollaboratorError("fee router", err), done)
	}
	done = append(done, compensation{"fee router", func(ctx context.Context) error {
		return s.feeRouter.RefundFee(ctx, s.asset, fee, s.treasury)
	}})

	if s.tokenSender != nil {
		if err := s.tokenSender.Send(ctx, account, fee); err != nil {
			return compensate(ctx, NewCollaboratorError("token sender", err), done)
		}
	}
	return nil
}

// compensation undoes one completed collaborator call.
type compensation struct {
	name string
	undo func(context.Context) error
}

// compensate runs steps last to first and appends their failures to err.
func compensate(ctx context.Context, err error, steps []compensation) error {
	ctx = context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		if undoErr := steps[i].undo(ctx); undoErr != nil {
			err = multierror.Append(err, NewCompensationError(steps[i].name, undoErr))
		}
	}
	return err
}

// Preview reports how Hook would treat a withdrawal of preFee by account at
// this moment, without recording anything or calling any collaborator.
func (g *Guard) Preview(ctx context.Context, account Address, preFee decimal.Decimal) (quota.Decision, error) {
	if err := validateAccount(account); err != nil {
		return quota.Decision{}, err
	}
	s := g.snapshot()
	return g.ledger.Evaluate(ctx, string(account), preFee, s.limits(), g.now())
}

// Close releases the storage backend.
func (g *Guard) Close() error {
	if g.storage != nil {
		return g.storage.Close()
	}
	return nil
}

func (g *Guard) snapshot() settings {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings
}
