package healthchecker

import "time"

// Option configures the Checker
type Option func(*Config)

// WithInterval sets the time between background probes. Zero disables them;
// Check still works.
func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithTimeout bounds a single probe. Zero leaves the caller's context alone.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithTestKey sets the key read by a probe. It should live under the base
// key of the guard so it is covered by the same ACLs.
func WithTestKey(testKey string) Option {
	return func(c *Config) {
		if testKey != "" {
			c.TestKey = testKey
		}
	}
}
