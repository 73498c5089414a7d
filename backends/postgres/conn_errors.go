package postgres

// connErrorStrings are lowercase fragments of error messages that indicate the
// database is unreachable rather than rejecting a statement.
var connErrorStrings = []string{
	"connection refused",
	"connection reset",
	"network is unreachable",
	"no such host",
	"i/o timeout",
	"broken pipe",
	"pool exhausted",
	"too many connections",
	"terminating connection",
	"closed pool",
}
