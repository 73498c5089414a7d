// Package access gates configuration changes of the withdrawal guard and its
// collaborators behind per-setter capabilities.
package access

// Capability names a privileged configuration operation.
type Capability string

const (
	SetWithdrawalsAllowedRole   Capability = "SET_WITHDRAWALS_ALLOWED_ROLE"
	SetGlobalPeriodLengthRole   Capability = "SET_GLOBAL_PERIOD_LENGTH_ROLE"
	SetAccountPeriodLengthRole  Capability = "SET_ACCOUNT_PERIOD_LENGTH_ROLE"
	SetGlobalWithdrawLimitRole  Capability = "SET_GLOBAL_WITHDRAW_LIMIT_PER_PERIOD_ROLE"
	SetAccountWithdrawLimitRole Capability = "SET_ACCOUNT_WITHDRAW_LIMIT_PER_PERIOD_ROLE"
	SetCollateralRole           Capability = "SET_COLLATERAL_ROLE"
	SetAssetRole                Capability = "SET_ASSET_ROLE"
	SetDepositLedgerRole        Capability = "SET_DEPOSIT_RECORD_ROLE"
	SetFeeRouterRole            Capability = "SET_FEE_ROUTER_ROLE"
	SetTreasuryRole             Capability = "SET_TREASURY_ROLE"
	SetTokenSenderRole          Capability = "SET_TOKEN_SENDER_ROLE"

	// SetAllowedHookRole gates the hook list of the deposit record.
	SetAllowedHookRole Capability = "SET_ALLOWED_HOOK_ROLE"
)

var all = []Capability{
	SetWithdrawalsAllowedRole,
	SetGlobalPeriodLengthRole,
	SetAccountPeriodLengthRole,
	SetGlobalWithdrawLimitRole,
	SetAccountWithdrawLimitRole,
	SetCollateralRole,
	SetAssetRole,
	SetDepositLedgerRole,
	SetFeeRouterRole,
	SetTreasuryRole,
	SetTokenSenderRole,
	SetAllowedHookRole,
}

// All returns every known capability.
func All() []Capability {
	return append([]Capability(nil), all...)
}

// Known reports whether c is one of the capabilities returned by All.
func Known(c Capability) bool {
	for _, k := range all {
		if k == c {
			return true
		}
	}
	return false
}

// Policy decides whether caller may perform the operation named by c.
type Policy interface {
	IsAuthorized(caller string, c Capability) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(caller string, c Capability) bool

func (f PolicyFunc) IsAuthorized(caller string, c Capability) bool {
	return f(caller, c)
}
