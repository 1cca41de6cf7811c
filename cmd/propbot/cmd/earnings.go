package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propbot/earnings"
	"github.com/rustyeddy/propbot/market"
)

var earningsCmd = &cobra.Command{
	Use:   "earnings",
	Short: "Manage the earnings calendar cache",
}

var earningsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download report dates for the watchlist's stocks",
	Long: `Fetch the upcoming earnings calendar and replace the cache with the
entries for stocks in the catalog. Needs PROPBOT_ALPHAVANTAGE_API_KEY. An
empty download leaves the cache untouched.`,
	Args: cobra.NoArgs,
	RunE: runEarningsRefresh,
}

var earningsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached report dates",
	Args:  cobra.NoArgs,
	RunE:  runEarningsShow,
}

func init() {
	rootCmd.AddCommand(earningsCmd)
	earningsCmd.AddCommand(earningsRefreshCmd)
	earningsCmd.AddCommand(earningsShowCmd)
}

func runEarningsRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Earnings.APIKey == "" {
		return fmt.Errorf("PROPBOT_ALPHAVANTAGE_API_KEY is not set")
	}
	cat := market.DefaultCatalog()
	if cfg.Paths.Catalog != "" {
		if cat, err = market.LoadCatalog(cfg.Paths.Catalog); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}
	var watch []string
	for _, sym := range cat.Symbols() {
		if in, _ := cat.Lookup(sym); in.Category == market.Stocks {
			watch = append(watch, sym)
		}
	}

	ctx := context.Background()
	store, err := openEarnings(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := store.(interface{ Close() error }); ok {
		defer c.Close()
	}
	f := &earnings.AlphaVantage{
		URL:     cfg.Earnings.URL,
		APIKey:  cfg.Earnings.APIKey,
		Horizon: cfg.Earnings.Horizon,
		HTTP:    &http.Client{Timeout: cfg.Timeouts.Feed.D()},
	}
	n, err := earnings.Refresh(ctx, f, store, watch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cached %d of %d watchlist stocks\n", n, len(watch))
	return nil
}

func runEarningsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	store, err := openEarnings(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := store.(interface{ Close() error }); ok {
		defer c.Close()
	}
	all, err := store.All(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, sym := range sortedKeys(all) {
		fmt.Fprintf(out, "%-6s %s\n", sym, all[sym].Format(earnings.DateLayout))
	}
	return nil
}

func sortedKeys(m map[string]time.Time) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
