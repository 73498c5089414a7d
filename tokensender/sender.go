// Package tokensender pays withdrawing accounts a rebate in a reward asset,
// proportional to the fee they were charged.
package tokensender

import (
	"context"
	"fmt"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/feerouter"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimal places a rebate is truncated to.
const DefaultPrecision = 18

type Config struct {
	Balances    *feerouter.Balances
	RewardAsset withdrawguard.Address
	Reserve     withdrawguard.Address // holder rebates are paid from
	Ratio       decimal.Decimal       // reward units per unit of fee
	Precision   int32                 // zero means DefaultPrecision
	Logger      *zerolog.Logger
}

// Sender pays fee × ratio of the reward asset from the reserve. A rebate the
// reserve cannot cover, or one that truncates to zero, is skipped without error.
type Sender struct {
	balances  *feerouter.Balances
	reward    withdrawguard.Address
	reserve   withdrawguard.Address
	ratio     decimal.Decimal
	precision int32
	logger    zerolog.Logger
}

var _ withdrawguard.TokenSender = (*Sender)(nil)

func New(cfg Config) (*Sender, error) {
	if cfg.Balances == nil {
		return nil, withdrawguard.NewNilCollaboratorError("balances")
	}
	if cfg.RewardAsset.IsZero() {
		return nil, withdrawguard.NewZeroAddressError("reward asset")
	}
	if cfg.Reserve.IsZero() {
		return nil, withdrawguard.NewZeroAddressError("reward reserve")
	}
	if cfg.Ratio.IsNegative() {
		return nil, fmt.Errorf("rebate ratio cannot be negative, got %s", cfg.Ratio)
	}

	s := &Sender{
		balances:  cfg.Balances,
		reward:    cfg.RewardAsset,
		reserve:   cfg.Reserve,
		ratio:     cfg.Ratio,
		precision: cfg.Precision,
		logger:    zerolog.Nop(),
	}
	if s.precision <= 0 {
		s.precision = DefaultPrecision
	}
	if cfg.Logger != nil {
		s.logger = *cfg.Logger
	}
	return s, nil
}

// Rebate returns the reward owed for fee.
func (s *Sender) Rebate(fee decimal.Decimal) decimal.Decimal {
	return fee.Mul(s.ratio).Truncate(s.precision)
}

func (s *Sender) Send(ctx context.Context, recipient withdrawguard.Address, fee decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := s.Rebate(fee)
	if !out.IsPositive() {
		return nil
	}
	if s.balances.BalanceOf(s.reward, s.reserve).LessThan(out) {
		s.logger.Debug().
			Str("recipient", recipient.String()).
			Str("rebate", out.String()).
			Msg("reward reserve too low, rebate skipped")
		return nil
	}
	return s.balances.Transfer(s.reward, s.reserve, recipient, out)
}
