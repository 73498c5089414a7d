package withdrawguard

import (
	"context"
	"fmt"
	"time"

	"github.com/ajiwo/withdrawguard/access"
	"github.com/ajiwo/withdrawguard/utils"
	"github.com/shopspring/decimal"
)

func (g *Guard) authorize(caller Address, c access.Capability) error {
	if !g.policy.IsAuthorized(string(caller), c) {
		return NewMissingCapabilityError(caller, c)
	}
	return nil
}

// update applies fn to the settings and logs the change.
func (g *Guard) update(caller Address, field string, fn func(*settings)) {
	g.mu.Lock()
	fn(&g.settings)
	g.mu.Unlock()

	g.logger.Info().
		Str("caller", caller.String()).
		Str("field", field).
		Msg("configuration changed")
}

// SetWithdrawalsAllowed turns Hook on or off. Requires SetWithdrawalsAllowedRole.
func (g *Guard) SetWithdrawalsAllowed(caller Address, allowed bool) error {
	if err := g.authorize(caller, access.SetWithdrawalsAllowedRole); err != nil {
		return err
	}
	g.update(caller, "withdrawals_allowed", func(s *settings) {
		s.enabled = allowed
	})
	return nil
}

// SetGlobalPeriodLength sets the length of the global window. Requires
// SetGlobalPeriodLengthRole.
func (g *Guard) SetGlobalPeriodLength(caller Address, length time.Duration) error {
	if err := g.authorize(caller, access.SetGlobalPeriodLengthRole); err != nil {
		return err
	}
	if length < 0 {
		return fmt.Errorf("global period length cannot be negative, got %s", length)
	}
	g.update(caller, "global_period_length", func(s *settings) {
		s.globalPeriod = length
	})
	return nil
}

// SetAccountPeriodLength sets the length of every account window. Requires
// SetAccountPeriodLengthRole.
func (g *Guard) SetAccountPeriodLength(caller Address, length time.Duration) error {
	if err := g.authorize(caller, access.SetAccountPeriodLengthRole); err != nil {
		return err
	}
	if length < 0 {
		return fmt.Errorf("account period length cannot be negative, got %s", length)
	}
	g.update(caller, "account_period_length", func(s *settings) {
		s.accountPeriod = length
	})
	return nil
}

// SetGlobalWithdrawLimitPerPeriod sets the pre-fee amount all accounts may
// withdraw together in one global window. Requires SetGlobalWithdrawLimitRole.
func (g *Guard) SetGlobalWithdrawLimitPerPeriod(caller Address, limit decimal.Decimal) error {
	if err := g.authorize(caller, access.SetGlobalWithdrawLimitRole); err != nil {
		return err
	}
	if limit.IsNegative() {
		return fmt.Errorf("%w: global limit %s", ErrInvalidAmount, limit)
	}
	g.update(caller, "global_withdraw_limit_per_period", func(s *settings) {
		s.globalLimit = limit
	})
	return nil
}

// SetAccountWithdrawLimitPerPeriod sets the pre-fee amount one account may
// withdraw in one account window. Requires SetAccountWithdrawLimitRole.
func (g *Guard) SetAccountWithdrawLimitPerPeriod(caller Address, limit decimal.Decimal) error {
	if err := g.authorize(caller, access.SetAccountWithdrawLimitRole); err != nil {
		return err
	}
	if limit.IsNegative() {
		return fmt.Errorf("%w: account limit %s", ErrInvalidAmount, limit)
	}
	g.update(caller, "account_withdraw_limit_per_period", func(s *settings) {
		s.accountLimit = limit
	})
	return nil
}

// SetCollateral registers the only component allowed to call Hook. Requires
// SetCollateralRole.
func (g *Guard) SetCollateral(caller, collateral Address) error {
	if err := g.authorize(caller, access.SetCollateralRole); err != nil {
		return err
	}
	if collateral.IsZero() {
		return NewZeroAddressError("collateral")
	}
	g.update(caller, "collateral", func(s *settings) {
		s.collateral = collateral
	})
	return nil
}

// SetAsset sets the asset in which fees are routed. Requires SetAssetRole.
func (g *Guard) SetAsset(caller, asset Address) error {
	if err := g.authorize(caller, access.SetAssetRole); err != nil {
		return err
	}
	if asset.IsZero() {
		return NewZeroAddressError("asset")
	}
	g.update(caller, "asset", func(s *settings) {
		s.asset = asset
	})
	return nil
}

// SetTreasury sets the destination of routed fees. Requires SetTreasuryRole.
func (g *Guard) SetTreasury(caller, treasury Address) error {
	if err := g.authorize(caller, access.SetTreasuryRole); err != nil {
		return err
	}
	if treasury.IsZero() {
		return NewZeroAddressError("treasury")
	}
	g.update(caller, "treasury", func(s *settings) {
		s.treasury = treasury
	})
	return nil
}

// SetDepositLedger sets the ledger whose recorded deposits Hook decreases.
// Requires SetDepositLedgerRole.
func (g *Guard) SetDepositLedger(caller Address, ledger DepositLedger) error {
	if err := g.authorize(caller, access.SetDepositLedgerRole); err != nil {
		return err
	}
	if ledger == nil {
		return NewNilCollaboratorError("deposit ledger")
	}
	g.update(caller, "deposit_ledger", func(s *settings) {
		s.depositLedger = ledger
	})
	return nil
}

// SetFeeRouter sets where stripped fees go. Requires SetFeeRouterRole.
func (g *Guard) SetFeeRouter(caller Address, router FeeRouter) error {
	if err := g.authorize(caller, access.SetFeeRouterRole); err != nil {
		return err
	}
	if router == nil {
		return NewNilCollaboratorError("fee router")
	}
	g.update(caller, "fee_router", func(s *settings) {
		s.feeRouter = router
	})
	return nil
}

// SetTokenSender sets the rebate sender. A nil sender disables rebates.
// Requires SetTokenSenderRole.
func (g *Guard) SetTokenSender(caller Address, sender TokenSender) error {
	if err := g.authorize(caller, access.SetTokenSenderRole); err != nil {
		return err
	}
	g.update(caller, "token_sender", func(s *settings) {
		s.tokenSender = sender
	})
	return nil
}

// WithdrawalsAllowed reports whether Hook accepts withdrawals.
func (g *Guard) WithdrawalsAllowed() bool {
	return g.snapshot().enabled
}

// GlobalWithdrawLimitPerPeriod returns the global limit.
func (g *Guard) GlobalWithdrawLimitPerPeriod() decimal.Decimal {
	return g.snapshot().globalLimit
}

// AccountWithdrawLimitPerPeriod returns the per-account limit.
func (g *Guard) AccountWithdrawLimitPerPeriod() decimal.Decimal {
	return g.snapshot().accountLimit
}

// GlobalPeriodLength returns the length of the global window.
func (g *Guard) GlobalPeriodLength() time.Duration {
	return g.snapshot().globalPeriod
}

// AccountPeriodLength returns the length of an account window.
func (g *Guard) AccountPeriodLength() time.Duration {
	return g.snapshot().accountPeriod
}

// Collateral returns the only caller Hook accepts.
func (g *Guard) Collateral() Address {
	return g.snapshot().collateral
}

// Asset returns the asset fees are routed in.
func (g *Guard) Asset() Address {
	return g.snapshot().asset
}

// Treasury returns the fee destination.
func (g *Guard) Treasury() Address {
	return g.snapshot().treasury
}

// DepositLedger returns the configured deposit ledger, or nil.
func (g *Guard) DepositLedger() DepositLedger {
	return g.snapshot().depositLedger
}

// FeeRouter returns the configured fee router, or nil.
func (g *Guard) FeeRouter() FeeRouter {
	return g.snapshot().feeRouter
}

// TokenSender returns the rebate sender, or nil when rebates are off.
func (g *Guard) TokenSender() TokenSender {
	return g.snapshot().tokenSender
}

// GlobalAmountWithdrawnThisPeriod returns the stored global running total.
// It is not reset by reading: a window whose period is over still reports
// its total until the next withdrawal opens a new one.
func (g *Guard) GlobalAmountWithdrawnThisPeriod(ctx context.Context) (decimal.Decimal, error) {
	w, err := g.ledger.Global(ctx)
	return w.Spent, err
}

// LastGlobalPeriodReset returns when the current global window started, or
// the zero time if no withdrawal was ever recorded.
func (g *Guard) LastGlobalPeriodReset(ctx context.Context) (time.Time, error) {
	w, err := g.ledger.Global(ctx)
	return w.ResetAt, err
}

// AccountAmountWithdrawnThisPeriod returns the stored running total of
// account, with the same staleness as GlobalAmountWithdrawnThisPeriod.
func (g *Guard) AccountAmountWithdrawnThisPeriod(ctx context.Context, account Address) (decimal.Decimal, error) {
	if err := validateAccount(account); err != nil {
		return decimal.Zero, err
	}
	w, err := g.ledger.Account(ctx, string(account))
	return w.Spent, err
}

// LastAccountPeriodReset returns when the current window of account started.
func (g *Guard) LastAccountPeriodReset(ctx context.Context, account Address) (time.Time, error) {
	if err := validateAccount(account); err != nil {
		return time.Time{}, err
	}
	w, err := g.ledger.Account(ctx, string(account))
	return w.ResetAt, err
}

func validateAccount(account Address) error {
	if account.IsZero() {
		return NewInvalidAccountError(account, ErrZeroAddress)
	}
	if err := utils.ValidateAccount(string(account)); err != nil {
		return NewInvalidAccountError(account, err)
	}
	return nil
}
