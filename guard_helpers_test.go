package withdrawguard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ajiwo/withdrawguard/access"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	admin      = Address("0xadmin")
	collateral = Address("0xcollateral")
	treasury   = Address("0xtreasury")
	usdc       = Address("0xusdc")
	user       = Address("0xuser")
	other      = Address("0xother")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}

type decrease struct {
	account Address
	amount  decimal.Decimal
}

// fakeLedger keeps the decreases in effect; a restore removes the last one.
type fakeLedger struct {
	mu         sync.Mutex
	calls      []decrease
	restored   []decrease
	err        error
	restoreErr error
}

func (l *fakeLedger) DecreaseRecordedDeposit(ctx context.Context, account Address, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.calls = append(l.calls, decrease{account, amount})
	return nil
}

func (l *fakeLedger) RestoreRecordedDeposit(ctx context.Context, account Address, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.restoreErr != nil {
		return l.restoreErr
	}
	l.calls = l.calls[:len(l.calls)-1]
	l.restored = append(l.restored, decrease{account, amount})
	return nil
}

type route struct {
	asset       Address
	amount      decimal.Decimal
	destination Address
}

// fakeRouter keeps the routes in effect; a refund removes the last one.
type fakeRouter struct {
	mu        sync.Mutex
	calls     []route
	refunded  []route
	err       error
	refundErr error
}

func (r *fakeRouter) RouteFee(ctx context.Context, asset Address, amount decimal.Decimal, destination Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, route{asset, amount, destination})
	return nil
}

func (r *fakeRouter) RefundFee(ctx context.Context, asset Address, amount decimal.Decimal, destination Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refundErr != nil {
		return r.refundErr
	}
	r.calls = r.calls[:len(r.calls)-1]
	r.refunded = append(r.refunded, route{asset, amount, destination})
	return nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls []decrease
	err   error
}

func (s *fakeSender) Send(ctx context.Context, recipient Address, fee decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, decrease{recipient, fee})
	return nil
}

type fixture struct {
	guard  *Guard
	clock  *fakeClock
	roles  *access.Roles
	ledger *fakeLedger
	router *fakeRouter
}

// newFixture returns an enabled guard configured with the 3.03 / 2.02 limits
// and 20s / 10s periods.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	roles, err := access.NewRoles(string(admin))
	require.NoError(t, err)

	f := &fixture{
		clock:  newFakeClock(),
		roles:  roles,
		ledger: &fakeLedger{},
		router: &fakeRouter{},
	}

	opts = append([]Option{WithPolicy(roles), WithClock(f.clock.Now)}, opts...)
	f.guard, err = New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.guard.Close() })

	g := f.guard
	require.NoError(t, g.SetCollateral(admin, collateral))
	require.NoError(t, g.SetWithdrawalsAllowed(admin, true))
	require.NoError(t, g.SetGlobalPeriodLength(admin, 20*time.Second))
	require.NoError(t, g.SetAccountPeriodLength(admin, 10*time.Second))
	require.NoError(t, g.SetGlobalWithdrawLimitPerPeriod(admin, d("3.03")))
	require.NoError(t, g.SetAccountWithdrawLimitPerPeriod(admin, d("2.02")))
	require.NoError(t, g.SetDepositLedger(admin, f.ledger))
	require.NoError(t, g.SetTreasury(admin, treasury))
	require.NoError(t, g.SetFeeRouter(admin, f.router))
	require.NoError(t, g.SetAsset(admin, usdc))
	return f
}

func (f *fixture) hook(t *testing.T, account Address, pre, post string) error {
	t.Helper()
	return f.guard.Hook(t.Context(), collateral, account, d(pre), d(post))
}

func (f *fixture) globalSpent(t *testing.T) decimal.Decimal {
	t.Helper()
	v, err := f.guard.GlobalAmountWithdrawnThisPeriod(t.Context())
	require.NoError(t, err)
	return v
}

func (f *fixture) accountSpent(t *testing.T, account Address) decimal.Decimal {
	t.Helper()
	v, err := f.guard.AccountAmountWithdrawnThisPeriod(t.Context(), account)
	require.NoError(t, err)
	return v
}
