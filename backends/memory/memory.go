package memory

import (
	"context"
	"sync"
	"time"
)

// Backend is an in-process storage backend. Every key has its own mutex so
// CheckAndSet on one key never blocks operations on another.
type Backend struct {
	locks  sync.Map // map[string]*sync.Mutex
	values sync.Map // map[string]memoryValue
	now    func() time.Time
}

type memoryValue struct {
	value      string
	expiration time.Time // zero means the value never expires
}

func (v memoryValue) expired(now time.Time) bool {
	return !v.expiration.IsZero() && !now.Before(v.expiration)
}

// New initializes a new in-memory storage instance.
func New() *Backend {
	return &Backend{now: time.Now}
}

// getLock returns a mutex for the given key
func (m *Backend) getLock(key string) *sync.Mutex {
	actual, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (m *Backend) expiresAt(expiration time.Duration) time.Time {
	if expiration <= 0 {
		return time.Time{}
	}
	return m.now().Add(expiration)
}

// load returns the live value for key, dropping it if expired.
// The caller must hold the key lock.
func (m *Backend) load(key string) (string, bool) {
	valAny, exists := m.values.Load(key)
	if !exists {
		return "", false
	}
	val := valAny.(memoryValue)
	if val.expired(m.now()) {
		m.values.Delete(key)
		return "", false
	}
	return val.value, true
}

func (m *Backend) Get(ctx context.Context, key string) (string, error) {
	lock := m.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	val, _ := m.load(key)
	return val, nil
}

func (m *Backend) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	lock := m.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.values.Store(key, memoryValue{
		value:      value,
		expiration: m.expiresAt(expiration),
	})
	return nil
}

// CheckAndSet atomically sets key to newValue only if the current value equals oldValue.
// oldValue="" means "only set if key doesn't exist"
func (m *Backend) CheckAndSet(ctx context.Context, key string, oldValue, newValue string, expiration time.Duration) (bool, error) {
	lock := m.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	current, exists := m.load(key)
	if oldValue == "" {
		if exists {
			return false, nil
		}
	} else if !exists || current != oldValue {
		return false, nil
	}

	m.values.Store(key, memoryValue{
		value:      newValue,
		expiration: m.expiresAt(expiration),
	})
	return true, nil
}

func (m *Backend) Delete(ctx context.Context, key string) error {
	lock := m.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.values.Delete(key)
	return nil
}

// Close drops every stored value.
func (m *Backend) Close() error {
	m.values.Clear()
	m.locks.Clear()
	return nil
}
