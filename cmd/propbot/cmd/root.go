package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/propbot/config"
)

var rootCmd = &cobra.Command{
	Use:   "propbot",
	Short: "Multi-asset prop-account trading and risk engine",
	Long: `Propbot scans a watchlist of FX, metals, indices, stocks and crypto for
oversold/overbought pullbacks, sizes entries from a fixed account risk and
manages them with ATR trailing stops, RSI exits and a daily drawdown kill
switch.

Secrets (Telegram token, Alpha Vantage key, Redis password) come from the
environment or a .env file, never from the config file.`,
	SilenceUsage: true,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (YAML or JSON)")
}

// loadConfig applies defaults, the --config file and environment
// overrides, then validates.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}
