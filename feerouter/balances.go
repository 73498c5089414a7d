// Package feerouter moves stripped withdrawal fees from the collateral to
// their destination over an in-process balance sheet.
package feerouter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ajiwo/withdrawguard"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

type holding struct {
	asset  withdrawguard.Address
	holder withdrawguard.Address
}

// Balances holds amounts of assets per holder.
type Balances struct {
	mu sync.RWMutex
	m  map[holding]decimal.Decimal
}

func NewBalances() *Balances {
	return &Balances{m: make(map[holding]decimal.Decimal)}
}

// Mint credits holder with amount of asset.
func (b *Balances) Mint(asset, holder withdrawguard.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w, got %s", ErrInvalidAmount, amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := holding{asset, holder}
	b.m[k] = b.m[k].Add(amount)
	return nil
}

func (b *Balances) BalanceOf(asset, holder withdrawguard.Address) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.m[holding{asset, holder}]
}

// Transfer moves amount of asset from one holder to another.
func (b *Balances) Transfer(asset, from, to withdrawguard.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w, got %s", ErrInvalidAmount, amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	src := holding{asset, from}
	if b.m[src].LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, from, b.m[src], asset, amount)
	}
	dst := holding{asset, to}
	b.m[src] = b.m[src].Sub(amount)
	b.m[dst] = b.m[dst].Add(amount)
	return nil
}
