// Package depositrecord keeps net deposit totals, globally and per account,
// under configurable caps. Only allowed hooks may change the totals.
package depositrecord

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/access"
	"github.com/shopspring/decimal"
)

type Record struct {
	mu         sync.RWMutex
	policy     access.Policy
	globalCap  decimal.Decimal
	accountCap decimal.Decimal
	global     decimal.Decimal
	accounts   map[withdrawguard.Address]decimal.Decimal
	hooks      map[withdrawguard.Address]struct{}

	// last decrease per account, kept until it is restored or superseded
	undo map[withdrawguard.Address]removal
}

// removal is what one decrease actually took off each total. It is less than
// the requested amount when a total hit zero.
type removal struct {
	amount  decimal.Decimal
	global  decimal.Decimal
	account decimal.Decimal
}

// New creates an empty record. policy gates SetAllowedHook. A zero cap
// leaves its total uncapped.
func New(policy access.Policy, globalCap, accountCap decimal.Decimal) (*Record, error) {
	if policy == nil {
		return nil, withdrawguard.ErrNilPolicy
	}
	if globalCap.IsNegative() || accountCap.IsNegative() {
		return nil, fmt.Errorf("%w: global %s, account %s", ErrInvalidCap, globalCap, accountCap)
	}
	return &Record{
		policy:     policy,
		globalCap:  globalCap,
		accountCap: accountCap,
		accounts:   make(map[withdrawguard.Address]decimal.Decimal),
		hooks:      make(map[withdrawguard.Address]struct{}),
		undo:       make(map[withdrawguard.Address]removal),
	}, nil
}

// SetAllowedHook adds or removes hook from the components allowed to change totals.
func (r *Record) SetAllowedHook(caller, hook withdrawguard.Address, allowed bool) error {
	if !r.policy.IsAuthorized(string(caller), access.SetAllowedHookRole) {
		return withdrawguard.NewMissingCapabilityError(caller, access.SetAllowedHookRole)
	}
	if hook.IsZero() {
		return withdrawguard.NewZeroAddressError("hook")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if allowed {
		r.hooks[hook] = struct{}{}
	} else {
		delete(r.hooks, hook)
	}
	return nil
}

func (r *Record) IsAllowedHook(hook withdrawguard.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hooks[hook]
	return ok
}

// checkHook must be called with r.mu held.
func (r *Record) checkHook(caller withdrawguard.Address) error {
	if _, ok := r.hooks[caller]; !ok {
		return NewHookNotAllowedError(string(caller))
	}
	return nil
}

// RecordDeposit adds amount to the totals of account. The deposit is
// rejected if it would take either total above its non-zero cap.
func (r *Record) RecordDeposit(caller, account withdrawguard.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w, got %s", ErrInvalidAmount, amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkHook(caller); err != nil {
		return err
	}

	if exceeds(r.global.Add(amount), r.globalCap) {
		return NewCapExceededError(ErrGlobalCapExceeded, r.global, amount, r.globalCap)
	}
	current := r.accounts[account]
	if exceeds(current.Add(amount), r.accountCap) {
		return NewCapExceededError(ErrAccountCapExceeded, current, amount, r.accountCap)
	}

	r.global = r.global.Add(amount)
	r.accounts[account] = current.Add(amount)
	return nil
}

// DecreaseRecordedDeposit subtracts amount from the totals of account.
// Totals never go below zero.
func (r *Record) DecreaseRecordedDeposit(caller, account withdrawguard.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w, got %s", ErrInvalidAmount, amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkHook(caller); err != nil {
		return err
	}

	current := r.accounts[account]
	rm := removal{
		amount:  amount,
		global:  decimal.Min(r.global, amount),
		account: decimal.Min(current, amount),
	}
	r.global = r.global.Sub(rm.global)
	r.setAccount(account, current.Sub(rm.account))
	r.undo[account] = rm
	return nil
}

// RestoreRecordedDeposit takes back the last decrease of amount for account,
// putting back exactly what it removed from each total. Caps are not checked.
func (r *Record) RestoreRecordedDeposit(caller, account withdrawguard.Address, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkHook(caller); err != nil {
		return err
	}

	rm, ok := r.undo[account]
	if !ok || !rm.amount.Equal(amount) {
		return NewNothingToRestoreError(string(account), amount)
	}
	delete(r.undo, account)
	r.global = r.global.Add(rm.global)
	r.setAccount(account, r.accounts[account].Add(rm.account))
	return nil
}

// setAccount must be called with r.mu held.
func (r *Record) setAccount(account withdrawguard.Address, total decimal.Decimal) {
	if total.IsZero() {
		delete(r.accounts, account)
		return
	}
	r.accounts[account] = total
}

func exceeds(total, limit decimal.Decimal) bool {
	return limit.IsPositive() && total.GreaterThan(limit)
}

func (r *Record) GlobalNetDeposits() decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global
}

func (r *Record) AccountNetDeposits(account withdrawguard.Address) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts[account]
}

func (r *Record) GlobalCap() decimal.Decimal  { return r.globalCap }
func (r *Record) AccountCap() decimal.Decimal { return r.accountCap }

// For binds the record to the identity of hook, so it can be handed to a
// withdrawal guard as its deposit ledger.
func (r *Record) For(hook withdrawguard.Address) *View {
	return &View{record: r, hook: hook}
}

// View is a Record seen through one hook identity.
type View struct {
	record *Record
	hook   withdrawguard.Address
}

var _ withdrawguard.DepositLedger = (*View)(nil)

func (v *View) DecreaseRecordedDeposit(ctx context.Context, account withdrawguard.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.record.DecreaseRecordedDeposit(v.hook, account, amount)
}

func (v *View) RestoreRecordedDeposit(ctx context.Context, account withdrawguard.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.record.RestoreRecordedDeposit(v.hook, account, amount)
}

func (v *View) RecordDeposit(ctx context.Context, account withdrawguard.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.record.RecordDeposit(v.hook, account, amount)
}

// Hook returns the identity the view acts as.
func (v *View) Hook() withdrawguard.Address {
	return v.hook
}
