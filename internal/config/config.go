package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/quota"
	"github.com/ajiwo/withdrawguard/utils"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Log struct {
	Level  string `yaml:"level"`  // "debug","info","warn","error"
	Format string `yaml:"format"` // "json" or "text"
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type Postgres struct {
	ConnString string `yaml:"conn_string"`
	MaxConns   int32  `yaml:"max_conns"`
	MinConns   int32  `yaml:"min_conns"`
}

type Storage struct {
	Type     string   `yaml:"type"` // memory, redis or postgres
	BaseKey  string   `yaml:"base_key"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
}

// Guard holds the initial guard configuration. Limits are decimal strings so
// they survive YAML without float rounding.
type Guard struct {
	Enabled             bool          `yaml:"enabled"`
	GlobalLimit         string        `yaml:"global_withdraw_limit_per_period"`
	AccountLimit        string        `yaml:"account_withdraw_limit_per_period"`
	GlobalPeriodLength  time.Duration `yaml:"global_period_length"`
	AccountPeriodLength time.Duration `yaml:"account_period_length"`
	ResetPolicy         string        `yaml:"reset_policy"`
	MaxRetries          int           `yaml:"max_retries"`
	Admin               string        `yaml:"admin"`
	Collateral          string        `yaml:"collateral"`
	Asset               string        `yaml:"asset"`
	Treasury            string        `yaml:"treasury"`
}

type DepositRecord struct {
	GlobalCap  string `yaml:"global_cap"`
	AccountCap string `yaml:"account_cap"`
	Hook       string `yaml:"hook"` // identity the guard uses towards the record
}

type Rebate struct {
	Enabled     bool   `yaml:"enabled"`
	RewardAsset string `yaml:"reward_asset"`
	Reserve     string `yaml:"reserve"`
	Ratio       string `yaml:"ratio"`
	Precision   int32  `yaml:"precision"`
}

type Health struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Root struct {
	Log           Log           `yaml:"log"`
	Storage       Storage       `yaml:"storage"`
	Guard         Guard         `yaml:"guard"`
	DepositRecord DepositRecord `yaml:"deposit_record"`
	Rebate        Rebate        `yaml:"rebate"`
	Health        Health        `yaml:"health"`
}

// Load reads a YAML file and fills in defaults. It does not validate;
// call Validate on the result.
func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML and fills in defaults.
func Parse(b []byte) (*Root, error) {
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration of an empty file.
func Default() *Root {
	var cfg Root
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Root) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.BaseKey == "" {
		cfg.Storage.BaseKey = quota.DefaultBaseKey
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Guard.GlobalLimit == "" {
		cfg.Guard.GlobalLimit = "0"
	}
	if cfg.Guard.AccountLimit == "" {
		cfg.Guard.AccountLimit = "0"
	}
	if cfg.Guard.MaxRetries <= 0 {
		cfg.Guard.MaxRetries = quota.DefaultMaxRetries
	}
	if cfg.DepositRecord.GlobalCap == "" {
		cfg.DepositRecord.GlobalCap = "0"
	}
	if cfg.DepositRecord.AccountCap == "" {
		cfg.DepositRecord.AccountCap = "0"
	}
	if cfg.DepositRecord.Hook == "" {
		cfg.DepositRecord.Hook = "withdrawguard"
	}
	if cfg.Rebate.Ratio == "" {
		cfg.Rebate.Ratio = "0"
	}
	if cfg.Health.Timeout <= 0 {
		cfg.Health.Timeout = 2 * time.Second
	}
}

var ErrInvalid = errors.New("invalid config")

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, field, fmt.Sprintf(format, args...))
}

// Validate reports the first invalid field.
func (cfg *Root) Validate() error {
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "must be json or text, got %q", cfg.Log.Format)
	}

	switch cfg.Storage.Type {
	case "memory", "redis":
	case "postgres":
		if cfg.Storage.Postgres.ConnString == "" {
			return invalid("storage.postgres.conn_string", "required for postgres storage")
		}
	default:
		return invalid("storage.type", "must be memory, redis or postgres, got %q", cfg.Storage.Type)
	}
	if err := utils.ValidateKey(cfg.Storage.BaseKey); err != nil {
		return invalid("storage.base_key", "%v", err)
	}

	g := cfg.Guard
	if _, err := nonNegative(g.GlobalLimit); err != nil {
		return invalid("guard.global_withdraw_limit_per_period", "%v", err)
	}
	if _, err := nonNegative(g.AccountLimit); err != nil {
		return invalid("guard.account_withdraw_limit_per_period", "%v", err)
	}
	if g.GlobalPeriodLength < 0 {
		return invalid("guard.global_period_length", "cannot be negative")
	}
	if g.AccountPeriodLength < 0 {
		return invalid("guard.account_period_length", "cannot be negative")
	}
	if _, err := quota.ParseResetPolicy(g.ResetPolicy); err != nil {
		return invalid("guard.reset_policy", "%v", err)
	}
	for _, f := range []struct{ field, addr string }{
		{"guard.admin", g.Admin},
		{"guard.collateral", g.Collateral},
		{"guard.asset", g.Asset},
		{"guard.treasury", g.Treasury},
	} {
		if withdrawguard.Address(f.addr).IsZero() {
			return invalid(f.field, "required")
		}
	}

	if _, err := nonNegative(cfg.DepositRecord.GlobalCap); err != nil {
		return invalid("deposit_record.global_cap", "%v", err)
	}
	if _, err := nonNegative(cfg.DepositRecord.AccountCap); err != nil {
		return invalid("deposit_record.account_cap", "%v", err)
	}

	if r := cfg.Rebate; r.Enabled {
		if withdrawguard.Address(r.RewardAsset).IsZero() {
			return invalid("rebate.reward_asset", "required when rebates are enabled")
		}
		if withdrawguard.Address(r.Reserve).IsZero() {
			return invalid("rebate.reserve", "required when rebates are enabled")
		}
		if _, err := nonNegative(r.Ratio); err != nil {
			return invalid("rebate.ratio", "%v", err)
		}
	}

	if cfg.Health.Interval < 0 {
		return invalid("health.interval", "cannot be negative")
	}
	return nil
}

func nonNegative(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a decimal: %q", s)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("cannot be negative, got %s", v)
	}
	return v, nil
}

// Decimal parses a field already checked by Validate. An empty string is zero.
func Decimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}
