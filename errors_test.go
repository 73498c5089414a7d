package withdrawguard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ajiwo/withdrawguard/backends"
	"github.com/ajiwo/withdrawguard/quota"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "accepted"},
		{ErrDisabled, "disabled"},
		{NewUnauthorizedCallerError(other), "unauthorized"},
		{fmt.Errorf("check: %w", quota.ErrGlobalLimitExceeded), "global_limit_exceeded"},
		{ErrAccountLimitExceeded, "account_limit_exceeded"},
		{NewCollaboratorError("fee router", errors.New("x")), "collaborator_failure"},
		{multierror.Append(NewCollaboratorError("fee router", errors.New("x")), quota.ErrRevertConflict), "collaborator_failure"},
		{NewInvalidAmountError(d("1"), d("2")), "invalid_amount"},
		{quota.NewInvalidAmountError(d("0")), "invalid_amount"},
		{NewInvalidAccountError("", ErrZeroAddress), "invalid_account"},
		{quota.NewContextCanceledError(context.DeadlineExceeded), "canceled"},
		{backends.NewHealthError("redis:Get", errors.New("connection refused")), "backend_unavailable"},
		{errors.New("something else"), "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}

func TestAddress_IsZero(t *testing.T) {
	assert.True(t, Address("").IsZero())
	assert.True(t, Address("0x0000000000000000000000000000000000000000").IsZero())
	assert.True(t, Address("0X0000000000000000000000000000000000000000").IsZero())
	assert.False(t, Address("0x0000000000000000000000000000000000000001").IsZero())
	assert.False(t, Address("0x0").IsZero())
	assert.Equal(t, "0xabc", Address("0xabc").String())
}
