package quota

import (
	"time"

	"github.com/shopspring/decimal"
)

// Limit is the configured bound of one window kind.
type Limit struct {
	Amount decimal.Decimal
	Period time.Duration
}

// Limits holds the global and per-account bounds in effect for one evaluation.
type Limits struct {
	Global  Limit
	Account Limit
}

// Outcome is the evaluation of a single window for one transaction.
type Outcome struct {
	Scope   Scope
	Key     string
	Limit   Limit
	Before  Window // state read from storage
	After   Window // state to commit if the transaction is accepted
	Reset   bool   // the window had elapsed and After opens a new one
	Allowed bool
}

// Remaining returns how much more can be recorded in the window after this
// outcome, floored at zero.
func (o Outcome) Remaining() decimal.Decimal {
	state := o.Before
	if o.Allowed {
		state = o.After
	}
	remaining := o.Limit.Amount.Sub(state.Spent)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ResetsAt returns when the window of this outcome ends.
func (o Outcome) ResetsAt() time.Time {
	if o.Allowed {
		return o.After.ResetAt.Add(o.Limit.Period)
	}
	return o.Before.ResetAt.Add(o.Limit.Period)
}

// apply runs the reset/accumulate/check step for one window. It never
// mutates storage; the returned outcome carries the state to commit.
func apply(scope Scope, key string, before Window, amount decimal.Decimal, limit Limit, now time.Time, policy ResetPolicy) Outcome {
	out := Outcome{
		Scope:  scope,
		Key:    key,
		Limit:  limit,
		Before: before,
		After:  before,
	}

	if before.Elapsed(limit.Period, now) {
		out.Reset = true
		if policy == ResetEnforced && amount.GreaterThan(limit.Amount) {
			return out
		}
		out.After = Window{Spent: amount, ResetAt: now}
		out.Allowed = true
		return out
	}

	total := before.Spent.Add(amount)
	if total.GreaterThan(limit.Amount) {
		return out
	}

	out.After = Window{Spent: total, ResetAt: before.ResetAt}
	out.Allowed = true
	return out
}
