package access

import (
	"sync"
)

// Roles is a capability table with two-step granting: the admin proposes a
// grant and the grantee accepts it before it takes effect. The admin is
// fixed at construction and holds every capability.
type Roles struct {
	mu      sync.RWMutex
	admin   string
	granted map[Capability]map[string]struct{}
	pending map[Capability]map[string]struct{}
}

var _ Policy = (*Roles)(nil)

// NewRoles creates an empty table administered by admin.
func NewRoles(admin string) (*Roles, error) {
	if admin == "" {
		return nil, ErrEmptyAdmin
	}
	return &Roles{
		admin:   admin,
		granted: make(map[Capability]map[string]struct{}),
		pending: make(map[Capability]map[string]struct{}),
	}, nil
}

// Admin returns the admin address.
func (r *Roles) Admin() string {
	return r.admin
}

func (r *Roles) IsAuthorized(caller string, c Capability) bool {
	if caller == "" {
		return false
	}
	if caller == r.admin {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.granted[c][caller]
	return ok
}

// HasPending reports whether account has an unaccepted grant of c.
func (r *Roles) HasPending(account string, c Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pending[c][account]
	return ok
}

func (r *Roles) check(caller, account string, c Capability) error {
	if caller != r.admin {
		return NewNotAdminError(caller)
	}
	if account == "" {
		return ErrEmptyAccount
	}
	if !Known(c) {
		return NewUnknownCapabilityError(c)
	}
	return nil
}

func add(m map[Capability]map[string]struct{}, c Capability, account string) {
	set, ok := m[c]
	if !ok {
		set = make(map[string]struct{})
		m[c] = set
	}
	set[account] = struct{}{}
}

// Grant proposes c to account. The grant is pending until account calls Accept.
func (r *Roles) Grant(caller, account string, c Capability) error {
	if err := r.check(caller, account, c); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	add(r.pending, c, account)
	return nil
}

// Accept activates a pending grant of c for caller.
func (r *Roles) Accept(caller string, c Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[c][caller]; !ok {
		return NewNoPendingGrantError(caller, c)
	}
	delete(r.pending[c], caller)
	add(r.granted, c, caller)
	return nil
}

// Revoke removes c from account, along with any pending grant.
func (r *Roles) Revoke(caller, account string, c Capability) error {
	if err := r.check(caller, account, c); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.granted[c], account)
	delete(r.pending[c], account)
	return nil
}

// Renounce removes c from caller.
func (r *Roles) Renounce(caller string, c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.granted[c], caller)
	delete(r.pending[c], caller)
}

// BatchGrantAndAccept grants every capability in caps to account and
// accepts them on its behalf. Used when bootstrapping a deployment.
func (r *Roles) BatchGrantAndAccept(caller, account string, caps ...Capability) error {
	for _, c := range caps {
		if err := r.check(caller, account, c); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range caps {
		add(r.granted, c, account)
		delete(r.pending[c], account)
	}
	return nil
}
