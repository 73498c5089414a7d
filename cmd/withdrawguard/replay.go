package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/internal/config"
	"github.com/ajiwo/withdrawguard/internal/setup"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReplayCmd replays a scenario file.
type ReplayCmd struct {
	Scenario   string `required:"" help:"Scenario file (YAML)." type:"existingfile"`
	MetricsOut string `name:"metrics-out" help:"Write Prometheus metrics to this file after the replay." type:"path"`
}

var errExpectations = errors.New("scenario expectations not met")

func (c *ReplayCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.load()
	if err != nil {
		return err
	}
	sc, err := loadScenario(c.Scenario)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	err = replay(context.Background(), os.Stdout, cfg, sc, logger, reg)

	if c.MetricsOut != "" {
		if werr := prometheus.WriteToTextfile(c.MetricsOut, reg); werr != nil {
			return multierror.Append(err, werr)
		}
	}
	return err
}

// scenarioClock is moved forward by the replay loop.
type scenarioClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *scenarioClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *scenarioClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func replay(ctx context.Context, w io.Writer, cfg *config.Root, sc *Scenario, logger zerolog.Logger, reg prometheus.Registerer) error {
	clock := &scenarioClock{now: sc.Start}
	dep, err := setup.Build(cfg, setup.Options{Logger: logger, Registerer: reg, Clock: clock.Now})
	if err != nil {
		return err
	}
	defer dep.Close()

	g := dep.Guard
	collateral := g.Collateral()
	for _, d := range sc.Deposits {
		amount := config.Decimal(d.Amount)
		if err := dep.Record.RecordDeposit(collateral, withdrawguard.Address(d.Account), amount); err != nil {
			return fmt.Errorf("deposit for %s: %w", d.Account, err)
		}
		if err := dep.Balances.Mint(g.Asset(), collateral, amount); err != nil {
			return fmt.Errorf("deposit for %s: %w", d.Account, err)
		}
	}
	if sc.RewardReserve != "" && cfg.Rebate.Enabled {
		reserve := withdrawguard.Address(cfg.Rebate.Reserve)
		if err := dep.Balances.Mint(withdrawguard.Address(cfg.Rebate.RewardAsset), reserve, config.Decimal(sc.RewardReserve)); err != nil {
			return fmt.Errorf("reward reserve: %w", err)
		}
	}

	accounts := make(map[withdrawguard.Address]struct{})
	failed := 0
	for i, st := range sc.Steps {
		clock.Set(sc.Start.Add(st.At))

		caller := collateral
		if st.Caller != "" {
			caller = withdrawguard.Address(st.Caller)
		}
		account := withdrawguard.Address(st.Account)
		accounts[account] = struct{}{}

		err := g.Hook(ctx, caller, account, config.Decimal(st.PreFee), config.Decimal(st.PostFee))
		got := withdrawguard.Reason(err)

		mark := ""
		if st.Expect != "" && st.Expect != got {
			failed++
			mark = fmt.Sprintf("  MISMATCH (expected %s)", st.Expect)
		}
		fmt.Fprintf(w, "%3d  +%-8s %-14s %10s -> %-10s %s%s\n",
			i+1, st.At, account, st.PreFee, st.PostFee, got, mark)
	}

	if err := printTotals(ctx, w, dep, accounts); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d steps", errExpectations, failed, len(sc.Steps))
	}
	return nil
}

func printTotals(ctx context.Context, w io.Writer, dep *setup.Deployment, accounts map[withdrawguard.Address]struct{}) error {
	g := dep.Guard

	spent, err := g.GlobalAmountWithdrawnThisPeriod(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "global   %s / %s\n", spent, g.GlobalWithdrawLimitPerPeriod())

	names := make([]string, 0, len(accounts))
	for a := range accounts {
		if !a.IsZero() {
			names = append(names, string(a))
		}
	}
	slices.Sort(names)
	for _, name := range names {
		spent, err := g.AccountAmountWithdrawnThisPeriod(ctx, withdrawguard.Address(name))
		if err != nil {
			// accounts rejected as invalid have no window
			continue
		}
		fmt.Fprintf(w, "account  %-14s %s / %s\n", name, spent, g.AccountWithdrawLimitPerPeriod())
	}

	fees := dep.Balances.BalanceOf(g.Asset(), g.Treasury())
	if fees.GreaterThan(decimal.Zero) {
		fmt.Fprintf(w, "treasury %s %s\n", fees, g.Asset())
	}
	return nil
}
