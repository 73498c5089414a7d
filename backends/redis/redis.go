package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ajiwo/withdrawguard/backends"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// ConnErrorStrings overrides the lowercase patterns used to classify
	// errors as connectivity failures.
	ConnErrorStrings []string
}

type Backend struct {
	client   *redis.Client
	patterns []string
}

// checkAndSetScript compares KEYS[1] with ARGV[1] and writes ARGV[2] on match.
// An empty ARGV[1] means the key must not exist. ARGV[3] is the TTL in
// milliseconds, '0' for no expiry.
var checkAndSetScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])

if ARGV[1] == '' then
	if current ~= false then
		return 0
	end
elseif current ~= ARGV[1] then
	return 0
end

if ARGV[3] == '0' then
	redis.call('SET', KEYS[1], ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

// New connects to redis and verifies the connection with PING.
func New(config Config) (*Backend, error) {
	if config.Addr == "" {
		return nil, NewInvalidConfigError("addr")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	b := NewWithClient(client)
	if len(config.ConnErrorStrings) > 0 {
		b.patterns = config.ConnErrorStrings
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, backends.NewHealthError("redis:Ping", NewConnectionFailedError(config.Addr, err))
	}

	return b, nil
}

// NewWithClient wraps an existing client. The backend takes ownership and
// closes the client on Close.
func NewWithClient(client *redis.Client) *Backend {
	return &Backend{client: client, patterns: connErrorStrings}
}

func (r *Backend) GetClient() *redis.Client {
	return r.client
}

func (r *Backend) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", backends.MaybeConnError("redis:Get", NewGetFailedError(key, err), r.patterns)
	}
	return val, nil
}

func (r *Backend) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if expiration < 0 {
		expiration = 0
	}
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		return backends.MaybeConnError("redis:Set", NewSetFailedError(key, err), r.patterns)
	}
	return nil
}

// CheckAndSet atomically sets key to newValue only if the current value matches oldValue.
// An empty oldValue means "set only if the key does not exist".
func (r *Backend) CheckAndSet(ctx context.Context, key, oldValue, newValue string, expiration time.Duration) (bool, error) {
	expMs := "0"
	if expiration > 0 {
		expMs = strconv.FormatInt(max(expiration.Milliseconds(), 1), 10)
	}

	result, err := checkAndSetScript.Run(ctx, r.client, []string{key}, oldValue, newValue, expMs).Int64()
	if err != nil {
		return false, backends.MaybeConnError("redis:CheckAndSet", NewEvalFailedError(key, err), r.patterns)
	}

	return result == 1, nil
}

func (r *Backend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return backends.MaybeConnError("redis:Delete", NewDeleteFailedError(key, err), r.patterns)
	}
	return nil
}

func (r *Backend) Close() error {
	if err := r.client.Close(); err != nil {
		return NewCloseFailedError(err)
	}
	return nil
}
