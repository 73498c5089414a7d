package feerouter

import (
	"context"

	"github.com/ajiwo/withdrawguard"
	"github.com/shopspring/decimal"
)

// Router pays fees out of the balance of a fixed source, normally the
// collateral that holds the withdrawn assets.
type Router struct {
	balances *Balances
	source   withdrawguard.Address
}

var _ withdrawguard.FeeRouter = (*Router)(nil)

func New(balances *Balances, source withdrawguard.Address) (*Router, error) {
	if balances == nil {
		return nil, withdrawguard.NewNilCollaboratorError("balances")
	}
	if source.IsZero() {
		return nil, withdrawguard.NewZeroAddressError("fee source")
	}
	return &Router{balances: balances, source: source}, nil
}

// RouteFee moves amount of asset from the source to destination.
func (r *Router) RouteFee(ctx context.Context, asset withdrawguard.Address, amount decimal.Decimal, destination withdrawguard.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination.IsZero() {
		return withdrawguard.NewZeroAddressError("fee destination")
	}
	return r.balances.Transfer(asset, r.source, destination, amount)
}

// RefundFee moves amount back from destination to the source, reversing a
// RouteFee with the same arguments.
func (r *Router) RefundFee(ctx context.Context, asset withdrawguard.Address, amount decimal.Decimal, destination withdrawguard.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination.IsZero() {
		return withdrawguard.NewZeroAddressError("fee destination")
	}
	return r.balances.Transfer(asset, destination, r.source, amount)
}

// Source returns the holder fees are paid from.
func (r *Router) Source() withdrawguard.Address {
	return r.source
}
