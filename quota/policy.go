package quota

import (
	"fmt"
	"strings"
)

// ResetPolicy decides how the first transaction after a window boundary is treated.
type ResetPolicy int

const (
	// ResetUncapped starts the new window with the full amount of the
	// transaction that opened it, without comparing it to the limit.
	// A single transaction right after a boundary may therefore exceed the
	// limit, and that total becomes the baseline for the rest of the window.
	ResetUncapped ResetPolicy = iota

	// ResetEnforced applies the limit to the opening transaction as well.
	ResetEnforced
)

func (p ResetPolicy) String() string {
	switch p {
	case ResetUncapped:
		return "uncapped"
	case ResetEnforced:
		return "enforced"
	default:
		return fmt.Sprintf("ResetPolicy(%d)", int(p))
	}
}

// ParseResetPolicy accepts "uncapped" or "enforced"; empty selects ResetUncapped.
func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uncapped":
		return ResetUncapped, nil
	case "enforced":
		return ResetEnforced, nil
	default:
		return 0, NewUnknownResetPolicyError(s)
	}
}
