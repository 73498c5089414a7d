package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajiwo/withdrawguard/internal/config"
	"github.com/ajiwo/withdrawguard/internal/setup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
guard:
  enabled: true
  global_withdraw_limit_per_period: "3.03"
  account_withdraw_limit_per_period: "2.02"
  global_period_length: 20s
  account_period_length: 10s
  admin: "0xadmin"
  collateral: "0xcollateral"
  asset: "0xusdc"
  treasury: "0xtreasury"
deposit_record:
  global_cap: "1000"
  account_cap: "100"
`

const testScenario = `
deposits:
  - account: "0xuser"
    amount: "20"
steps:
  - at: 0s
    account: "0xuser"
    pre_fee: "1.01"
    post_fee: "1.0"
    expect: accepted
  - at: 1s
    account: "0xuser"
    pre_fee: "5.0"
    expect: global_limit_exceeded
  - at: 2s
    caller: "0xstranger"
    account: "0xuser"
    pre_fee: "1"
    expect: unauthorized
  - at: 21s
    account: "0xuser"
    pre_fee: "5.0"
    expect: accepted
`

func loadTestConfig(t *testing.T) *config.Root {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	return cfg
}

func TestReplay(t *testing.T) {
	sc, err := parseScenario([]byte(testScenario))
	require.NoError(t, err)

	var out bytes.Buffer
	reg := prometheus.NewRegistry()
	err = replay(context.Background(), &out, loadTestConfig(t), sc, zerolog.Nop(), reg)
	require.NoError(t, err, out.String())

	s := out.String()
	assert.Contains(t, s, "global_limit_exceeded")
	assert.Contains(t, s, "unauthorized")
	assert.NotContains(t, s, "MISMATCH")
	assert.Contains(t, s, "global   5 / 3.03")
	assert.Contains(t, s, "account  0xuser         5 / 2.02")
	assert.Contains(t, s, "treasury 0.01 0xusdc")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, prometheus.WriteToTextfile(path, reg))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `withdrawguard_hook_total{result="accepted"} 2`)
}

func TestReplay_Mismatch(t *testing.T) {
	sc, err := parseScenario([]byte(`
steps:
  - account: "0xuser"
    pre_fee: "5"
    expect: global_limit_exceeded
`))
	require.NoError(t, err)

	var out bytes.Buffer
	err = replay(context.Background(), &out, loadTestConfig(t), sc, zerolog.Nop(), prometheus.NewRegistry())
	require.ErrorIs(t, err, errExpectations)
	// the first withdrawal opens a window and is recorded uncapped
	assert.Regexp(t, `accepted\s+MISMATCH \(expected global_limit_exceeded\)`, out.String())
}

func TestParseScenario(t *testing.T) {
	sc, err := parseScenario([]byte(testScenario))
	require.NoError(t, err)
	assert.Equal(t, defaultStart, sc.Start)
	assert.Equal(t, "5.0", sc.Steps[1].PostFee, "post fee defaults to pre fee")

	bad := []string{
		"steps: [{pre_fee: abc}]",
		"steps: [{pre_fee: '1', post_fee: x}]",
		"steps: [{at: 5s, pre_fee: '1'}, {at: 1s, pre_fee: '1'}]",
		"deposits: [{account: '', amount: '1'}]",
		"deposits: [{account: '0xa', amount: 'lots'}]",
		"reward_reserve: many",
		"steps: {}",
	}
	for _, s := range bad {
		_, err := parseScenario([]byte(s))
		assert.Error(t, err, s)
	}
}

func TestStatus(t *testing.T) {
	dep, err := setup.Build(loadTestConfig(t), setup.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer dep.Close()

	ctx := context.Background()
	collateral := dep.Guard.Collateral()
	require.NoError(t, dep.Record.RecordDeposit(collateral, "0xuser", d("5")))
	require.NoError(t, dep.Guard.Hook(ctx, collateral, "0xuser", d("2"), d("2")))

	var out bytes.Buffer
	cmd := &StatusCmd{Account: "0xuser", Amount: "0.5"}
	require.NoError(t, cmd.print(ctx, &out, dep))

	s := out.String()
	assert.Contains(t, s, "storage:  healthy")
	assert.Contains(t, s, "enabled:  true")
	assert.Contains(t, s, "global:   2 / 3.03 since")
	assert.Contains(t, s, "account:  2 / 2.02 since")
	assert.Contains(t, s, "preview:  0.5 account_limit_exceeded")

	out.Reset()
	require.NoError(t, (&StatusCmd{Account: "0xnew"}).print(ctx, &out, dep))
	assert.Contains(t, out.String(), "account:  0 / 2.02 (no window yet)")

	require.Error(t, (&StatusCmd{Account: "0xuser", Amount: "x"}).print(ctx, &out, dep))
}

func TestCLI_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	cli := &CLI{Config: path, LogLevel: "debug", LogFormat: "text"}
	cfg, _, err := cli.load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	cli.LogFormat = "xml"
	_, _, err = cli.load()
	require.ErrorIs(t, err, config.ErrInvalid)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
