package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ajiwo/withdrawguard/backends"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	ConnString string
	MaxConns   int32
	MinConns   int32

	// ConnErrorStrings overrides the lowercase patterns used to classify
	// errors as connectivity failures.
	ConnErrorStrings []string
}

type Backend struct {
	pool     *pgxpool.Pool
	patterns []string
	now      func() time.Time
}

func New(config Config) (*Backend, error) {
	if config.ConnString == "" {
		return nil, NewInvalidConfigError("conn string")
	}
	if config.MaxConns == 0 {
		config.MaxConns = 10
	}
	if config.MinConns == 0 {
		config.MinConns = 2
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnString)
	if err != nil {
		return nil, NewInvalidConnStringError(err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, NewPoolCreationFailedError(err)
	}

	b := &Backend{pool: pool, patterns: connErrorStrings, now: time.Now}
	if len(config.ConnErrorStrings) > 0 {
		b.patterns = config.ConnErrorStrings
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, backends.NewHealthError("postgres:Ping", err)
	}

	if err := createTable(ctx, pool); err != nil {
		pool.Close()
		return nil, NewTableCreationFailedError(err)
	}

	return b, nil
}

func createTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS withdrawguard_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE
		)
	`)
	return err
}

func (p *Backend) GetPool() *pgxpool.Pool {
	return p.pool
}

func (p *Backend) expiresAt(expiration time.Duration) *time.Time {
	if expiration <= 0 {
		return nil
	}
	t := p.now().Add(expiration)
	return &t
}

func (p *Backend) Get(ctx context.Context, key string) (string, error) {
	var value string
	var expiresAt *time.Time

	err := p.pool.QueryRow(ctx, `
		SELECT value, expires_at
		FROM withdrawguard_kv
		WHERE key = $1
	`, key).Scan(&value, &expiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", backends.MaybeConnError("postgres:Get", NewGetFailedError(key, err), p.patterns)
	}

	if expiresAt != nil && !p.now().Before(*expiresAt) {
		return "", nil
	}

	return value, nil
}

func (p *Backend) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO withdrawguard_kv (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at
	`, key, value, p.expiresAt(expiration))
	if err != nil {
		return backends.MaybeConnError("postgres:Set", NewSetFailedError(key, err), p.patterns)
	}
	return nil
}

// CheckAndSet atomically sets key to newValue only if the current value matches oldValue.
// An empty oldValue means "set only if the key does not exist"; an expired row counts as absent.
func (p *Backend) CheckAndSet(ctx context.Context, key, oldValue, newValue string, expiration time.Duration) (bool, error) {
	now := p.now()
	expiresAt := p.expiresAt(expiration)

	var sql string
	var args []any
	if oldValue == "" {
		sql = `
			INSERT INTO withdrawguard_kv (key, value, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				expires_at = EXCLUDED.expires_at
			WHERE withdrawguard_kv.expires_at IS NOT NULL
				AND withdrawguard_kv.expires_at <= $4
		`
		args = []any{key, newValue, expiresAt, now}
	} else {
		sql = `
			UPDATE withdrawguard_kv
			SET value = $3, expires_at = $4
			WHERE key = $1
				AND value = $2
				AND (expires_at IS NULL OR expires_at > $5)
		`
		args = []any{key, oldValue, newValue, expiresAt, now}
	}

	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, backends.MaybeConnError("postgres:CheckAndSet", NewCheckAndSetFailedError(key, err), p.patterns)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Backend) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM withdrawguard_kv WHERE key = $1`, key)
	if err != nil {
		return backends.MaybeConnError("postgres:Delete", NewDeleteFailedError(key, err), p.patterns)
	}
	return nil
}

func (p *Backend) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
