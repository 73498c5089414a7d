package healthchecker

import (
	"context"
	"sync"
	"time"

	"github.com/ajiwo/withdrawguard/backends"
)

// Checker probes the storage holding the quota windows and reports every
// result to a status callback.
type Checker struct {
	backend  backends.Backend
	config   Config
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
	onStatus func(error) // nil error means the backend answered
}

// New creates a health checker for backend. onStatus may be nil.
func New(backend backends.Backend, onStatus func(error), opts ...Option) *Checker {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Checker{
		backend:  backend,
		config:   config,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		onStatus: onStatus,
	}
}

// Config returns the effective configuration.
func (h *Checker) Config() Config {
	return h.config
}

// Check runs a single probe. A failed probe returns a backends.HealthError.
func (h *Checker) Check(ctx context.Context) error {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	// a Get on a key nobody writes is enough to prove connectivity
	_, err := h.backend.Get(ctx, h.config.TestKey)
	if err != nil {
		err = backends.NewHealthError("probe", err)
	}
	if h.onStatus != nil {
		h.onStatus(err)
	}
	return err
}

// Start probes once immediately and then every Interval until Stop is
// called. A non-positive Interval disables background probing.
func (h *Checker) Start() {
	if h.config.Interval <= 0 {
		close(h.done)
		return
	}

	go func() {
		defer close(h.done)
		_ = h.Check(context.Background())

		ticker := time.NewTicker(h.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = h.Check(context.Background())
			case <-h.stopChan:
				return
			}
		}
	}()
}

// Stop ends background probing and waits for the running probe, if any.
// It must only be called after Start.
func (h *Checker) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
	<-h.done
}
