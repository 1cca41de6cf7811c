package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propbot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate the configuration given with --config

Examples:
  propbot config init -o propbot.yaml
  propbot config validate -c propbot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and environment overrides",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "propbot.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nSet secrets in .env (PROPBOT_TELEGRAM_TOKEN, PROPBOT_ALPHAVANTAGE_API_KEY) and run with:")
	fmt.Fprintf(out, "  propbot run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration valid: %s\n", cfgPath)
	fmt.Fprintf(out, "  Account: %s magic=%d trade_allowed=%v\n", cfg.Account.Currency, cfg.Account.Magic, cfg.Account.TradeAllowed)
	fmt.Fprintf(out, "  Risk: %.2f%% per trade, %d positions, %.1f%% daily drawdown\n",
		cfg.Risk.RiskPerTradePct*100, cfg.Risk.MaxPositions, cfg.Risk.MaxDailyDrawdownPct*100)
	fmt.Fprintf(out, "  Correlation: %s (modifier %.2f, max exposure %d)\n",
		cfg.Risk.CorrelationMode, cfg.Risk.CorrelationRiskModifier, cfg.Risk.MaxCurrencyExposure)
	fmt.Fprintf(out, "  Categories: forex=%v metals=%v indices=%v stocks=%v crypto=%v\n",
		cfg.Categories.Forex, cfg.Categories.Metals, cfg.Categories.Indices, cfg.Categories.Stocks, cfg.Categories.Crypto)
	return nil
}
