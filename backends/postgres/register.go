package postgres

import (
	"github.com/ajiwo/withdrawguard/backends"
)

func init() {
	backends.Register("postgres", func(config any) (backends.Backend, error) {
		pgConfig, ok := config.(Config)
		if !ok {
			return nil, backends.NewInvalidConfigError("postgres", config)
		}
		return New(pgConfig)
	})
}
