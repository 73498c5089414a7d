package access

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyAdmin        = errors.New("admin address cannot be empty")
	ErrEmptyAccount      = errors.New("account address cannot be empty")
	ErrNotAdmin          = errors.New("caller is not the admin")
	ErrUnknownCapability = errors.New("unknown capability")
	ErrNoPendingGrant    = errors.New("no pending grant")
)

func NewNotAdminError(caller string) error {
	return fmt.Errorf("%w: %q", ErrNotAdmin, caller)
}

func NewUnknownCapabilityError(c Capability) error {
	return fmt.Errorf("%w: %q", ErrUnknownCapability, c)
}

func NewNoPendingGrantError(account string, c Capability) error {
	return fmt.Errorf("%w of %s for %q", ErrNoPendingGrant, c, account)
}
