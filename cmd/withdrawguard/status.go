package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ajiwo/withdrawguard"
	"github.com/ajiwo/withdrawguard/internal/setup"
	"github.com/shopspring/decimal"
)

// StatusCmd prints the stored quota windows.
type StatusCmd struct {
	Account string        `help:"Also print the window of this account."`
	Amount  string        `help:"With --account, report whether a withdrawal of this pre-fee amount would pass now."`
	Timeout time.Duration `help:"Timeout for storage operations." default:"5s"`
}

func (c *StatusCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.load()
	if err != nil {
		return err
	}

	dep, err := setup.Build(cfg, setup.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer dep.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	return c.print(ctx, os.Stdout, dep)
}

func (c *StatusCmd) print(ctx context.Context, w io.Writer, dep *setup.Deployment) error {
	g := dep.Guard

	if err := dep.Health.Check(ctx); err != nil {
		fmt.Fprintf(w, "storage:  unhealthy (%v)\n", err)
		return err
	}
	fmt.Fprintln(w, "storage:  healthy")
	fmt.Fprintf(w, "enabled:  %t\n", g.WithdrawalsAllowed())

	spent, err := g.GlobalAmountWithdrawnThisPeriod(ctx)
	if err != nil {
		return err
	}
	reset, err := g.LastGlobalPeriodReset(ctx)
	if err != nil {
		return err
	}
	printWindow(w, "global", spent, g.GlobalWithdrawLimitPerPeriod(), reset, g.GlobalPeriodLength())

	if c.Account == "" {
		return nil
	}
	account := withdrawguard.Address(c.Account)
	spent, err = g.AccountAmountWithdrawnThisPeriod(ctx, account)
	if err != nil {
		return err
	}
	reset, err = g.LastAccountPeriodReset(ctx, account)
	if err != nil {
		return err
	}
	printWindow(w, "account", spent, g.AccountWithdrawLimitPerPeriod(), reset, g.AccountPeriodLength())

	if c.Amount == "" {
		return nil
	}
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	dec, err := g.Preview(ctx, account, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "preview:  %s %s\n", amount, withdrawguard.Reason(dec.Err()))
	return nil
}

func printWindow(w io.Writer, name string, spent, limit decimal.Decimal, reset time.Time, period time.Duration) {
	if reset.IsZero() {
		fmt.Fprintf(w, "%-8s  %s / %s (no window yet)\n", name+":", spent, limit)
		return
	}
	fmt.Fprintf(w, "%-8s  %s / %s since %s, period %s\n", name+":", spent, limit, reset.UTC().Format(time.RFC3339), period)
}
