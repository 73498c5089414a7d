package healthchecker

import (
	"time"

	"github.com/ajiwo/withdrawguard/quota"
)

// Config holds the probe settings.
type Config struct {
	Interval time.Duration // time between background probes
	Timeout  time.Duration // bound on a single probe
	TestKey  string        // key read by a probe, never written
}

// ProbeKey returns the probe key living next to the windows under base.
func ProbeKey(base string) string {
	if base == "" {
		base = quota.DefaultBaseKey
	}
	return base + ":health"
}

// DefaultConfig probes every 10s with a 2s timeout.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Timeout:  2 * time.Second,
		TestKey:  ProbeKey(quota.DefaultBaseKey),
	}
}
