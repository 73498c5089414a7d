// Package setup turns a configuration file into a running guard with its
// storage, authorization table and collaborators.
package setup

import (
	"fmt"
	"time"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/access"
	"github.com/ajiwo/withdrawguard/backends"
	_ "github.com/ajiwo/withdrawguard/backends/memory"
	"github.com/ajiwo/withdrawguard/backends/postgres"
	"github.com/ajiwo/withdrawguard/backends/redis"
	"github.com/ajiwo/withdrawguard/depositrecord"
	"github.com/ajiwo/withdrawguard/feerouter"
	"github.com/ajiwo/withdrawguard/internal/config"
	"github.com/ajiwo/withdrawguard/internal/healthchecker"
	"github.com/ajiwo/withdrawguard/quota"
	"github.com/ajiwo/withdrawguard/tokensender"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Options struct {
	Logger     zerolog.Logger
	Registerer prometheus.Registerer // nil disables metrics
	Clock      func() time.Time      // nil means time.Now
}

// Deployment is everything Build created. Close releases it.
type Deployment struct {
	Guard    *withdrawguard.Guard
	Roles    *access.Roles
	Record   *depositrecord.Record
	Balances *feerouter.Balances
	Router   *feerouter.Router
	Sender   *tokensender.Sender // nil when rebates are disabled
	Storage  backends.Backend
	Metrics  *withdrawguard.Metrics
	Health   *healthchecker.Checker
}

// Admin returns the configured admin address.
func (d *Deployment) Admin() withdrawguard.Address {
	return withdrawguard.Address(d.Roles.Admin())
}

// Close releases the storage backend.
func (d *Deployment) Close() error {
	return d.Guard.Close()
}

// backendConfig returns the value handed to the backend factory registered
// under cfg.Storage.Type.
func backendConfig(cfg config.Storage) any {
	switch cfg.Type {
	case "redis":
		return redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}
	case "postgres":
		return postgres.Config{
			ConnString: cfg.Postgres.ConnString,
			MaxConns:   cfg.Postgres.MaxConns,
			MinConns:   cfg.Postgres.MinConns,
		}
	default:
		return nil
	}
}

// Build validates cfg and applies the bootstrap sequence: storage, roles,
// collaborators, then the guard setters in a fixed order.
func Build(cfg *config.Root, opts Options) (*Deployment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storage, err := backends.Create(cfg.Storage.Type, backendConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.Storage.Type, err)
	}

	d, err := build(cfg, opts, storage)
	if err != nil {
		if closeErr := storage.Close(); closeErr != nil {
			return nil, multierror.Append(err, closeErr)
		}
		return nil, err
	}
	return d, nil
}

func build(cfg *config.Root, opts Options, storage backends.Backend) (*Deployment, error) {
	g := cfg.Guard
	admin := withdrawguard.Address(g.Admin)
	collateral := withdrawguard.Address(g.Collateral)
	logger := opts.Logger

	d := &Deployment{Storage: storage}

	roles, err := access.NewRoles(g.Admin)
	if err != nil {
		return nil, err
	}
	if err := roles.BatchGrantAndAccept(g.Admin, g.Admin, access.All()...); err != nil {
		return nil, err
	}
	d.Roles = roles

	d.Record, err = depositrecord.New(roles,
		config.Decimal(cfg.DepositRecord.GlobalCap),
		config.Decimal(cfg.DepositRecord.AccountCap))
	if err != nil {
		return nil, err
	}
	hook := withdrawguard.Address(cfg.DepositRecord.Hook)
	for _, allowed := range []withdrawguard.Address{hook, collateral} {
		if err := d.Record.SetAllowedHook(admin, allowed, true); err != nil {
			return nil, err
		}
	}

	d.Balances = feerouter.NewBalances()
	d.Router, err = feerouter.New(d.Balances, collateral)
	if err != nil {
		return nil, err
	}

	if r := cfg.Rebate; r.Enabled {
		d.Sender, err = tokensender.New(tokensender.Config{
			Balances:    d.Balances,
			RewardAsset: withdrawguard.Address(r.RewardAsset),
			Reserve:     withdrawguard.Address(r.Reserve),
			Ratio:       config.Decimal(r.Ratio),
			Precision:   r.Precision,
			Logger:      &logger,
		})
		if err != nil {
			return nil, err
		}
	}

	if opts.Registerer != nil {
		d.Metrics = withdrawguard.NewMetrics(opts.Registerer)
	}

	policy, err := quota.ParseResetPolicy(g.ResetPolicy)
	if err != nil {
		return nil, err
	}
	guardOpts := []withdrawguard.Option{
		withdrawguard.WithBackend(storage),
		withdrawguard.WithPolicy(roles),
		withdrawguard.WithLogger(logger),
		withdrawguard.WithMetrics(d.Metrics),
		withdrawguard.WithResetPolicy(policy),
		withdrawguard.WithBaseKey(cfg.Storage.BaseKey),
		withdrawguard.WithMaxRetries(g.MaxRetries),
	}
	if opts.Clock != nil {
		guardOpts = append(guardOpts, withdrawguard.WithClock(opts.Clock))
	}
	d.Guard, err = withdrawguard.New(guardOpts...)
	if err != nil {
		return nil, err
	}

	if err := configure(d, cfg); err != nil {
		return nil, fmt.Errorf("failed to configure guard: %w", err)
	}

	d.Health = healthchecker.New(storage,
		func(err error) {
			d.Metrics.SetBackendUp(err == nil)
			if err != nil {
				logger.Warn().Err(err).Msg("storage health probe failed")
			}
		},
		healthchecker.WithInterval(cfg.Health.Interval),
		healthchecker.WithTimeout(cfg.Health.Timeout),
		healthchecker.WithTestKey(healthchecker.ProbeKey(cfg.Storage.BaseKey)),
	)

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Str("base_key", cfg.Storage.BaseKey).
		Str("reset_policy", policy.String()).
		Bool("rebates", d.Sender != nil).
		Msg("withdrawal guard configured")
	return d, nil
}

// configure calls the guard setters as the admin.
func configure(d *Deployment, cfg *config.Root) error {
	g := cfg.Guard
	admin := withdrawguard.Address(g.Admin)
	guard := d.Guard

	steps := []func() error{
		func() error { return guard.SetCollateral(admin, withdrawguard.Address(g.Collateral)) },
		func() error { return guard.SetWithdrawalsAllowed(admin, g.Enabled) },
		func() error { return guard.SetGlobalPeriodLength(admin, g.GlobalPeriodLength) },
		func() error { return guard.SetAccountPeriodLength(admin, g.AccountPeriodLength) },
		func() error { return guard.SetGlobalWithdrawLimitPerPeriod(admin, config.Decimal(g.GlobalLimit)) },
		func() error { return guard.SetAccountWithdrawLimitPerPeriod(admin, config.Decimal(g.AccountLimit)) },
		func() error {
			return guard.SetDepositLedger(admin, d.Record.For(withdrawguard.Address(cfg.DepositRecord.Hook)))
		},
		func() error { return guard.SetTreasury(admin, withdrawguard.Address(g.Treasury)) },
		func() error { return guard.SetFeeRouter(admin, d.Router) },
		func() error {
			if d.Sender == nil {
				return guard.SetTokenSender(admin, nil)
			}
			return guard.SetTokenSender(admin, d.Sender)
		},
		func() error { return guard.SetAsset(admin, withdrawguard.Address(g.Asset)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
