package depositrecord

import (
	"context"
	"testing"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/access"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	admin = withdrawguard.Address("0xadmin")
	hook  = withdrawguard.Address("0xhook")
	alice = withdrawguard.Address("0xalice")
	bob   = withdrawguard.Address("0xbob")
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRecord(t *testing.T) *Record {
	t.Helper()
	roles, err := access.NewRoles(string(admin))
	require.NoError(t, err)
	r, err := New(roles, d("100"), d("10"))
	require.NoError(t, err)
	require.NoError(t, r.SetAllowedHook(admin, hook, true))
	return r
}

func TestNew(t *testing.T) {
	_, err := New(nil, d("1"), d("1"))
	require.ErrorIs(t, err, withdrawguard.ErrNilPolicy)

	roles, err := access.NewRoles(string(admin))
	require.NoError(t, err)
	_, err = New(roles, d("-1"), d("1"))
	require.ErrorIs(t, err, ErrInvalidCap)
}

func TestSetAllowedHook(t *testing.T) {
	r := newRecord(t)
	assert.True(t, r.IsAllowedHook(hook))

	err := r.SetAllowedHook(bob, bob, true)
	require.ErrorIs(t, err, withdrawguard.ErrUnauthorized)
	assert.False(t, r.IsAllowedHook(bob))

	require.ErrorIs(t, r.SetAllowedHook(admin, "", true), withdrawguard.ErrZeroAddress)

	require.NoError(t, r.SetAllowedHook(admin, hook, false))
	assert.False(t, r.IsAllowedHook(hook))
	require.ErrorIs(t, r.RecordDeposit(hook, alice, d("1")), ErrHookNotAllowed)
}

func TestRecordDeposit_Caps(t *testing.T) {
	r := newRecord(t)

	require.NoError(t, r.RecordDeposit(hook, alice, d("10")))
	err := r.RecordDeposit(hook, alice, d("0.01"))
	require.ErrorIs(t, err, ErrAccountCapExceeded)
	assert.EqualError(t, err, "account deposit cap exceeded: 10 + 0.01 > 10")

	for i := range 9 {
		require.NoError(t, r.RecordDeposit(hook, withdrawguard.Address("0xacct"+string(rune('a'+i))), d("10")))
	}
	require.ErrorIs(t, r.RecordDeposit(hook, bob, d("1")), ErrGlobalCapExceeded)

	assert.True(t, d("100").Equal(r.GlobalNetDeposits()))
	assert.True(t, d("10").Equal(r.AccountNetDeposits(alice)))
	assert.True(t, r.AccountNetDeposits(bob).IsZero())

	require.ErrorIs(t, r.RecordDeposit(hook, bob, d("0")), ErrInvalidAmount)
	require.ErrorIs(t, r.RecordDeposit(bob, bob, d("1")), ErrHookNotAllowed)
}

func TestDecreaseRecordedDeposit_FloorsAtZero(t *testing.T) {
	r := newRecord(t)
	require.NoError(t, r.RecordDeposit(hook, alice, d("5")))
	require.NoError(t, r.RecordDeposit(hook, bob, d("2")))

	require.NoError(t, r.DecreaseRecordedDeposit(hook, alice, d("1.5")))
	assert.True(t, d("3.5").Equal(r.AccountNetDeposits(alice)))
	assert.True(t, d("5.5").Equal(r.GlobalNetDeposits()))

	// withdrawing more than was deposited (e.g. yield) floors at zero
	require.NoError(t, r.DecreaseRecordedDeposit(hook, alice, d("50")))
	assert.True(t, r.AccountNetDeposits(alice).IsZero())
	assert.True(t, r.GlobalNetDeposits().IsZero())

	require.ErrorIs(t, r.DecreaseRecordedDeposit(bob, bob, d("1")), ErrHookNotAllowed)
}

func TestRecordDeposit_ZeroCapIsUncapped(t *testing.T) {
	roles, err := access.NewRoles(string(admin))
	require.NoError(t, err)

	tests := []struct {
		name       string
		globalCap  string
		accountCap string
		wantErr    error
	}{
		{name: "both zero", globalCap: "0", accountCap: "0"},
		{name: "zero global cap", globalCap: "0", accountCap: "1000"},
		{name: "zero account cap", globalCap: "1000", accountCap: "0"},
		{name: "account cap still applies", globalCap: "0", accountCap: "5", wantErr: ErrAccountCapExceeded},
		{name: "global cap still applies", globalCap: "5", accountCap: "0", wantErr: ErrGlobalCapExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(roles, d(tt.globalCap), d(tt.accountCap))
			require.NoError(t, err)
			require.NoError(t, r.SetAllowedHook(admin, hook, true))

			err = r.RecordDeposit(hook, alice, d("10"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, r.GlobalNetDeposits().IsZero())
				return
			}
			require.NoError(t, err)
			require.NoError(t, r.RecordDeposit(hook, bob, d("250")))
			assert.True(t, d("260").Equal(r.GlobalNetDeposits()))
		})
	}
}

func TestRestoreRecordedDeposit(t *testing.T) {
	t.Run("puts back the decrease", func(t *testing.T) {
		r := newRecord(t)
		require.NoError(t, r.RecordDeposit(hook, alice, d("5")))
		require.NoError(t, r.RecordDeposit(hook, bob, d("2")))

		require.NoError(t, r.DecreaseRecordedDeposit(hook, alice, d("1.5")))
		require.NoError(t, r.RestoreRecordedDeposit(hook, alice, d("1.5")))
		assert.True(t, d("5").Equal(r.AccountNetDeposits(alice)))
		assert.True(t, d("7").Equal(r.GlobalNetDeposits()))
	})

	t.Run("floored decrease restores what it removed", func(t *testing.T) {
		r := newRecord(t)
		require.NoError(t, r.RecordDeposit(hook, alice, d("0.5")))
		require.NoError(t, r.RecordDeposit(hook, bob, d("2")))

		require.NoError(t, r.DecreaseRecordedDeposit(hook, alice, d("1.01")))
		assert.True(t, r.AccountNetDeposits(alice).IsZero())
		assert.True(t, d("1.49").Equal(r.GlobalNetDeposits()))

		require.NoError(t, r.RestoreRecordedDeposit(hook, alice, d("1.01")))
		assert.True(t, d("0.5").Equal(r.AccountNetDeposits(alice)))
		assert.True(t, d("2.5").Equal(r.GlobalNetDeposits()))
	})

	t.Run("only once", func(t *testing.T) {
		r := newRecord(t)
		require.NoError(t, r.RecordDeposit(hook, alice, d("5")))
		require.NoError(t, r.DecreaseRecordedDeposit(hook, alice, d("1")))
		require.NoError(t, r.RestoreRecordedDeposit(hook, alice, d("1")))

		require.ErrorIs(t, r.RestoreRecordedDeposit(hook, alice, d("1")), ErrNothingToRestore)
		assert.True(t, d("5").Equal(r.AccountNetDeposits(alice)))
	})

	t.Run("no matching decrease", func(t *testing.T) {
		r := newRecord(t)
		require.NoError(t, r.RecordDeposit(hook, alice, d("5")))
		require.ErrorIs(t, r.RestoreRecordedDeposit(hook, alice, d("1")), ErrNothingToRestore)

		require.NoError(t, r.DecreaseRecordedDeposit(hook, alice, d("1")))
		require.ErrorIs(t, r.RestoreRecordedDeposit(hook, alice, d("2")), ErrNothingToRestore)
		require.ErrorIs(t, r.RestoreRecordedDeposit(bob, alice, d("1")), ErrHookNotAllowed)
		assert.True(t, d("4").Equal(r.AccountNetDeposits(alice)))
	})
}

func TestView(t *testing.T) {
	r := newRecord(t)
	ctx := context.Background()

	view := r.For(hook)
	assert.Equal(t, hook, view.Hook())
	require.NoError(t, view.RecordDeposit(ctx, alice, d("4")))
	require.NoError(t, view.DecreaseRecordedDeposit(ctx, alice, d("1")))
	assert.True(t, d("3").Equal(r.AccountNetDeposits(alice)))
	require.NoError(t, view.DecreaseRecordedDeposit(ctx, alice, d("1")))
	require.NoError(t, view.RestoreRecordedDeposit(ctx, alice, d("1")))
	assert.True(t, d("3").Equal(r.AccountNetDeposits(alice)))

	stranger := r.For(bob)
	require.ErrorIs(t, stranger.DecreaseRecordedDeposit(ctx, alice, d("1")), ErrHookNotAllowed)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, view.DecreaseRecordedDeposit(canceled, alice, d("1")), context.Canceled)
	assert.True(t, d("3").Equal(r.AccountNetDeposits(alice)))
}
