package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var killswitchCmd = &cobra.Command{
	Use:   "killswitch",
	Short: "Close every position and cancel every pending order",
	Long: `Flatten the account now: every open position, manual ones included, is
closed and every pending order cancelled. Failures are journaled as
KILL_FAIL and the command exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: runKillswitch,
}

var killReason string

func init() {
	rootCmd.AddCommand(killswitchCmd)
	killswitchCmd.Flags().StringVar(&killReason, "reason", "manual", "reason recorded in the journal")
}

func runKillswitch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	rep, err := a.engine.KillSwitch(ctx, killReason)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "closed %d positions, cancelled %d orders\n", len(rep.Closed), rep.Cancelled)
	for _, f := range rep.Failed {
		fmt.Fprintf(out, "  FAILED %s #%d: %v\n", f.Symbol, f.Ticket, f.Err)
	}
	return err
}
