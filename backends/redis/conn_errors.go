package redis

// connErrorStrings are lowercase fragments of error messages that indicate the
// redis server is unreachable. Operational errors such as WRONGTYPE or NOSCRIPT
// are absent so they surface as data errors.
var connErrorStrings = []string{
	"connection refused",
	"connection reset",
	"network is unreachable",
	"no such host",
	"i/o timeout",
	"broken pipe",
	"connection pool exhausted",
	"redis: client is closed",
}
