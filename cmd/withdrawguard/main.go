// Command withdrawguard replays withdrawal scenarios against a configured
// guard and inspects the stored quota windows.
//
// Usage:
//
//	withdrawguard replay --config config.yaml --scenario scenario.yaml
//	withdrawguard status --config config.yaml --account 0xuser
//	withdrawguard validate --config config.yaml
package main

import (
	"fmt"
	"runtime/debug"

	"github.com/ajiwo/withdrawguard/internal/config"
	"github.com/ajiwo/withdrawguard/internal/obs"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration file."`
	Status   StatusCmd   `cmd:"" help:"Probe storage and print the stored quota windows."`
	Replay   ReplayCmd   `cmd:"" help:"Replay a withdrawal scenario against the configured guard."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"withdrawguard.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides the config file."`
	LogFormat string `help:"Log format (json, text). Overrides the config file."`
}

// load reads and validates the config file and builds the logger it asks for.
func (c *CLI) load() (*config.Root, zerolog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, obs.SetupLogger(cfg.Log.Level, cfg.Log.Format), nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("withdrawguard version %s\n", version)
	return nil
}

// ValidateCmd validates a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, _, err := cli.load()
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (storage %s, reset policy %q)\n", cli.Config, cfg.Storage.Type, cfg.Guard.ResetPolicy)
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("withdrawguard"),
		kong.Description("Withdrawal quota guard"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
