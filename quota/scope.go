package quota

// Scope identifies which of the two windows an outcome or error refers to.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeAccount
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "account"
}
