package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propbot/config"
	"github.com/rustyeddy/propbot/engine"
	"github.com/rustyeddy/propbot/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine once or as a service",
	Long: `Run one pass of the engine, or serve both loops until interrupted.

Modes:
  entry - drawdown check, news check, then an entry scan
  exit  - RSI exits for engine-owned positions
  trail - ATR trailing stops for engine-owned positions
  serve - fast and slow loops, earnings shield and weekly maintenance

Examples:
  propbot run --mode serve -c propbot.yaml
  propbot run --mode entry --no-stocks --no-crypto`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runMode    string
	runDisable = map[market.Category]*bool{}
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runMode, "mode", "m", string(engine.ModeServe), "entry, exit, trail or serve")
	for _, cat := range []market.Category{market.Stocks, market.Crypto, market.Forex, market.Metals, market.Indices} {
		runDisable[cat] = runCmd.Flags().Bool(categoryFlag(cat), false, fmt.Sprintf("disable %s trading", cat))
	}
}

func categoryFlag(cat market.Category) string {
	switch cat {
	case market.Stocks:
		return "no-stocks"
	case market.Crypto:
		return "no-crypto"
	case market.Forex:
		return "no-forex"
	case market.Metals:
		return "no-metals"
	default:
		return "no-indices"
	}
}

// applyDisables turns off every category whose --no-* flag is set.
func applyDisables(cfg *config.Config) {
	for cat, off := range runDisable {
		if *off {
			cfg.Disable(cat)
		}
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	mode, err := engine.ParseMode(runMode)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyDisables(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	a.log.Info("propbot starting", "mode", mode, "config", cfgPath, "trade_allowed", cfg.Account.TradeAllowed)
	if err := a.engine.RunOnce(ctx, mode); err != nil {
		a.log.Error("run failed", "mode", mode, "err", err)
		return err
	}
	return nil
}
