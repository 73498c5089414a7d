package withdrawguard

import (
	"context"

	"github.com/shopspring/decimal"
)

// DepositLedger tracks outstanding deposits. The guard decreases the
// recorded deposit of an account by the pre-fee amount of every accepted
// withdrawal.
//
// RestoreRecordedDeposit takes back a decrease made earlier in the same
// Hook call when a later step of the withdrawal fails. It must leave the
// totals as they were before that decrease.
type DepositLedger interface {
	DecreaseRecordedDeposit(ctx context.Context, account Address, amount decimal.Decimal) error
	RestoreRecordedDeposit(ctx context.Context, account Address, amount decimal.Decimal) error
}

// FeeRouter receives the fee stripped from a withdrawal.
//
// RefundFee reverses a RouteFee with the same arguments when a later step of
// the withdrawal fails.
type FeeRouter interface {
	RouteFee(ctx context.Context, asset Address, amount decimal.Decimal, destination Address) error
	RefundFee(ctx context.Context, asset Address, amount decimal.Decimal, destination Address) error
}

// TokenSender pays a rebate to the withdrawing account, proportional to the
// fee it was charged. It is the last step of a withdrawal and is never
// reversed.
type TokenSender interface {
	Send(ctx context.Context, recipient Address, fee decimal.Decimal) error
}
