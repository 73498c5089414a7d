package quota

import (
	"strconv"
	"strings"
	"time"

	"github.com/ajiwo/withdrawguard/utils/builderpool"
	"github.com/shopspring/decimal"
)

// Window is the persisted running total of one quota window.
// The zero Window is the state of a window that has never been used.
type Window struct {
	Spent   decimal.Decimal // amount recorded since ResetAt
	ResetAt time.Time       // when the current window started
}

// Elapsed reports whether a window of the given length starting at ResetAt
// is over at now.
func (w Window) Elapsed(period time.Duration, now time.Time) bool {
	return !now.Before(w.ResetAt.Add(period))
}

// Equal reports whether both windows hold the same total and start time.
func (w Window) Equal(o Window) bool {
	return w.Spent.Equal(o.Spent) && w.ResetAt.Equal(o.ResetAt)
}

const stateHeader = "v1|"

// encodeState serializes a window into a compact ASCII format:
// v1|spent|resetUnixNano
func encodeState(w Window) string {
	sb := builderpool.Get()
	defer builderpool.Put(sb)

	var nanos int64
	if !w.ResetAt.IsZero() {
		nanos = w.ResetAt.UnixNano()
	}

	sb.WriteString(stateHeader)
	sb.WriteString(w.Spent.String())
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(nanos, 10))
	return sb.String()
}

// decodeState parses the format written by encodeState.
// An empty string decodes to the zero Window.
func decodeState(s string) (Window, bool) {
	if s == "" {
		return Window{}, true
	}
	if !strings.HasPrefix(s, stateHeader) {
		return Window{}, false
	}

	spentStr, nanosStr, found := strings.Cut(s[len(stateHeader):], "|")
	if !found {
		return Window{}, false
	}

	spent, err := decimal.NewFromString(spentStr)
	if err != nil || spent.IsNegative() {
		return Window{}, false
	}

	nanos, err := strconv.ParseInt(nanosStr, 10, 64)
	if err != nil || nanos < 0 {
		return Window{}, false
	}

	var resetAt time.Time
	if nanos > 0 {
		resetAt = time.Unix(0, nanos)
	}

	return Window{Spent: spent, ResetAt: resetAt}, true
}
