package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ajiwo/withdrawguard"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Scenario is a timed list of withdrawals replayed against a guard.
type Scenario struct {
	Start         time.Time `yaml:"start"`          // zero means 2024-01-01T00:00:00Z
	RewardReserve string    `yaml:"reward_reserve"` // minted to the rebate reserve
	Deposits      []Deposit `yaml:"deposits"`
	Steps         []Step    `yaml:"steps"`
}

// Deposit is recorded in the deposit record and minted to the collateral
// before the first step.
type Deposit struct {
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
}

type Step struct {
	At      time.Duration `yaml:"at"` // offset from Start
	Caller  string        `yaml:"caller"`
	Account string        `yaml:"account"`
	PreFee  string        `yaml:"pre_fee"`
	PostFee string        `yaml:"post_fee"`
	Expect  string        `yaml:"expect"` // a withdrawguard.Reason code, empty skips the check
}

var defaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func loadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(b)
}

func parseScenario(b []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.Start.IsZero() {
		sc.Start = defaultStart
	}

	for i, dep := range sc.Deposits {
		if withdrawguard.Address(dep.Account).IsZero() {
			return nil, fmt.Errorf("deposit %d: account is required", i)
		}
		if _, err := decimal.NewFromString(dep.Amount); err != nil {
			return nil, fmt.Errorf("deposit %d: invalid amount %q", i, dep.Amount)
		}
	}
	if sc.RewardReserve != "" {
		if _, err := decimal.NewFromString(sc.RewardReserve); err != nil {
			return nil, fmt.Errorf("invalid reward_reserve %q", sc.RewardReserve)
		}
	}

	var last time.Duration
	for i, st := range sc.Steps {
		if st.At < last {
			return nil, fmt.Errorf("step %d: at %s is before the previous step", i, st.At)
		}
		last = st.At
		if _, err := decimal.NewFromString(st.PreFee); err != nil {
			return nil, fmt.Errorf("step %d: invalid pre_fee %q", i, st.PreFee)
		}
		if st.PostFee == "" {
			sc.Steps[i].PostFee = st.PreFee
		} else if _, err := decimal.NewFromString(st.PostFee); err != nil {
			return nil, fmt.Errorf("step %d: invalid post_fee %q", i, st.PostFee)
		}
	}
	return &sc, nil
}
