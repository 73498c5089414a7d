package memory

import (
	"github.com/ajiwo/withdrawguard/backends"
)

func init() {
	backends.Register("memory", func(config any) (backends.Backend, error) {
		// memory backend takes no configuration
		return New(), nil
	})
}
