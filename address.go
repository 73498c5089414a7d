package withdrawguard

import "strings"

// Address identifies an account, a component or an asset.
type Address string

var zeroAddressHex = "0x" + strings.Repeat("0", 40)

// IsZero reports whether a is empty or the all-zero placeholder address.
func (a Address) IsZero() bool {
	return a == "" || strings.EqualFold(string(a), zeroAddressHex)
}

func (a Address) String() string {
	return string(a)
}
