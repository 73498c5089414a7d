package quota

import (
	"context"
	"time"

	"github.com/ajiwo/withdrawguard/backends"
	"github.com/ajiwo/withdrawguard/utils"
	"github.com/ajiwo/withdrawguard/utils/builderpool"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

const DefaultBaseKey = "withdrawguard"

// Ledger keeps the global window and one window per account in a storage
// backend and applies the reset/accumulate/check algorithm to both.
type Ledger struct {
	storage    backends.Backend
	baseKey    string
	policy     ResetPolicy
	maxRetries int
}

// Decision is the evaluation of both windows for one transaction.
type Decision struct {
	Account    string
	Amount     decimal.Decimal
	Global     Outcome
	PerAccount Outcome
}

// Allowed reports whether both windows accept the transaction.
func (d Decision) Allowed() bool {
	return d.Global.Allowed && d.PerAccount.Allowed
}

// Err returns the rejection of the first window (global, then account) that
// refused the transaction, or nil.
func (d Decision) Err() error {
	if !d.Global.Allowed {
		return newLimitError(d.Global, d.Amount)
	}
	if !d.PerAccount.Allowed {
		return newLimitError(d.PerAccount, d.Amount)
	}
	return nil
}

// Receipt is a committed Decision. It carries the raw values needed to undo
// the commit with Revert.
type Receipt struct {
	Decision
	globalOld, globalNew   string
	accountOld, accountNew string
}

// New creates a ledger over storage.
func New(storage backends.Backend, opts ...Option) (*Ledger, error) {
	if storage == nil {
		return nil, ErrNilBackend
	}

	l := &Ledger{
		storage:    storage,
		baseKey:    DefaultBaseKey,
		policy:     ResetUncapped,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Policy returns the reset policy of the ledger.
func (l *Ledger) Policy() ResetPolicy {
	return l.policy
}

func (l *Ledger) globalKey() string {
	sb := builderpool.Get()
	defer builderpool.Put(sb)
	sb.WriteString(l.baseKey)
	sb.WriteString(":global")
	return sb.String()
}

func (l *Ledger) accountKey(account string) string {
	sb := builderpool.Get()
	defer builderpool.Put(sb)
	sb.WriteString(l.baseKey)
	sb.WriteString(":account:")
	sb.WriteString(account)
	return sb.String()
}

// read loads and decodes the window stored at key. raw is the stored value,
// empty if the key does not exist.
func (l *Ledger) read(ctx context.Context, key string) (w Window, raw string, err error) {
	raw, err = l.storage.Get(ctx, key)
	if err != nil {
		return Window{}, "", NewStateRetrievalError(key, err)
	}
	w, ok := decodeState(raw)
	if !ok {
		return Window{}, "", NewStateParsingError(key)
	}
	return w, raw, nil
}

// Global returns the stored global window.
func (l *Ledger) Global(ctx context.Context) (Window, error) {
	w, _, err := l.read(ctx, l.globalKey())
	return w, err
}

// Account returns the stored window of account.
func (l *Ledger) Account(ctx context.Context, account string) (Window, error) {
	if err := utils.ValidateAccount(account); err != nil {
		return Window{}, err
	}
	w, _, err := l.read(ctx, l.accountKey(account))
	return w, err
}

func validateInput(account string, amount decimal.Decimal) error {
	if err := utils.ValidateAccount(account); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return NewInvalidAmountError(amount)
	}
	return nil
}

type snapshot struct {
	decision   Decision
	globalRaw  string
	accountRaw string
}

func (l *Ledger) evaluate(ctx context.Context, account string, amount decimal.Decimal, limits Limits, now time.Time) (snapshot, error) {
	globalKey := l.globalKey()
	globalWin, globalRaw, err := l.read(ctx, globalKey)
	if err != nil {
		return snapshot{}, err
	}

	accountKey := l.accountKey(account)
	accountWin, accountRaw, err := l.read(ctx, accountKey)
	if err != nil {
		return snapshot{}, err
	}

	return snapshot{
		decision: Decision{
			Account:    account,
			Amount:     amount,
			Global:     apply(ScopeGlobal, globalKey, globalWin, amount, limits.Global, now, l.policy),
			PerAccount: apply(ScopeAccount, accountKey, accountWin, amount, limits.Account, now, l.policy),
		},
		globalRaw:  globalRaw,
		accountRaw: accountRaw,
	}, nil
}

// Evaluate reports what CheckAndRecord would decide at now without writing anything.
func (l *Ledger) Evaluate(ctx context.Context, account string, amount decimal.Decimal, limits Limits, now time.Time) (Decision, error) {
	if err := validateInput(account, amount); err != nil {
		return Decision{}, err
	}
	snap, err := l.evaluate(ctx, account, amount, limits, now)
	if err != nil {
		return Decision{}, err
	}
	return snap.decision, nil
}

// CheckAndRecord evaluates the global window and the account window and, if
// both accept amount, records it in both. Nothing is written when either
// window rejects; the returned error then wraps a *LimitError.
//
// Both windows are committed with CheckAndSet against the values that were
// read. When another writer gets in between, the partial commit is undone and
// the evaluation is retried.
func (l *Ledger) CheckAndRecord(ctx context.Context, account string, amount decimal.Decimal, limits Limits, now time.Time) (Receipt, error) {
	if err := validateInput(account, amount); err != nil {
		return Receipt{}, err
	}

	for attempt := range l.maxRetries {
		if ctx.Err() != nil {
			return Receipt{}, NewContextCanceledError(ctx.Err())
		}

		start := time.Now()
		snap, err := l.evaluate(ctx, account, amount, limits, now)
		if err != nil {
			return Receipt{}, err
		}
		if err := snap.decision.Err(); err != nil {
			return Receipt{}, err
		}

		receipt, committed, err := l.commit(ctx, snap)
		if err != nil {
			return Receipt{}, err
		}
		if committed {
			return receipt, nil
		}

		if attempt < l.maxRetries-1 {
			delay := nextDelay(attempt, time.Since(start))
			if err := utils.SleepOrWait(ctx, delay, sleepThreshold); err != nil {
				return Receipt{}, NewContextCanceledError(err)
			}
		}
	}

	return Receipt{}, NewStateUpdateError(l.maxRetries)
}

// commit writes both windows. committed is false when a concurrent writer
// changed either key; in that case storage is left as it was found.
func (l *Ledger) commit(ctx context.Context, snap snapshot) (Receipt, bool, error) {
	d := snap.decision
	r := Receipt{
		Decision:   d,
		globalOld:  snap.globalRaw,
		globalNew:  encodeState(d.Global.After),
		accountOld: snap.accountRaw,
		accountNew: encodeState(d.PerAccount.After),
	}

	ok, err := l.storage.CheckAndSet(ctx, d.Global.Key, r.globalOld, r.globalNew, 0)
	if err != nil {
		return Receipt{}, false, NewStateSaveError(d.Global.Key, err)
	}
	if !ok {
		return Receipt{}, false, nil
	}

	ok, err = l.storage.CheckAndSet(ctx, d.PerAccount.Key, r.accountOld, r.accountNew, 0)
	if err == nil && ok {
		return r, true, nil
	}

	// undo the global write before retrying or failing
	undoErr := l.release(ctx, d.Global.Key, r.globalNew, r.globalOld, d.Global.After, d.Amount)
	if err != nil {
		err = NewStateSaveError(d.PerAccount.Key, err)
		if undoErr != nil {
			err = multierror.Append(err, undoErr)
		}
		return Receipt{}, false, err
	}
	if undoErr != nil {
		return Receipt{}, false, undoErr
	}
	return Receipt{}, false, nil
}

// release takes amount back out of the window at key. When the key still
// holds the committed value, the old value is put back as it was. When other
// transactions were recorded on top, only amount is subtracted. When the
// window has rolled over since the commit there is nothing left to release.
func (l *Ledger) release(ctx context.Context, key, committedRaw, oldRaw string, committed Window, amount decimal.Decimal) error {
	if oldRaw == "" {
		// reads the same as a missing key
		oldRaw = encodeState(Window{})
	}

	for range l.maxRetries {
		current, raw, err := l.read(ctx, key)
		if err != nil {
			return NewRevertFailedError(key, err)
		}

		next := oldRaw
		if raw != committedRaw {
			if !current.ResetAt.Equal(committed.ResetAt) {
				return nil
			}
			spent := current.Spent.Sub(amount)
			if spent.IsNegative() {
				spent = decimal.Zero
			}
			next = encodeState(Window{Spent: spent, ResetAt: current.ResetAt})
		}

		ok, err := l.storage.CheckAndSet(ctx, key, raw, next, 0)
		if err != nil {
			return NewRevertFailedError(key, err)
		}
		if ok {
			return nil
		}
	}
	return NewRevertConflictError(key)
}

// Revert takes a committed receipt back out of both windows. Both windows
// are attempted; the errors of either are combined.
func (l *Ledger) Revert(ctx context.Context, r Receipt) error {
	var result *multierror.Error
	if err := l.release(ctx, r.PerAccount.Key, r.accountNew, r.accountOld, r.PerAccount.After, r.Amount); err != nil {
		result = multierror.Append(result, err)
	}
	if err := l.release(ctx, r.Global.Key, r.globalNew, r.globalOld, r.Global.After, r.Amount); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
