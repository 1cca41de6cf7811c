package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/propbot/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the execution journal",
	Long: `Query journal entries from the SQLite journal.

Subcommands:
  today  - List today's entries
  day    - List entries for a specific day

Examples:
  propbot journal today
  propbot journal day 2024-01-15 --db ./journal.db`,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's entries",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List entries for a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal (default from config)")
}

func openJournalDB() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Paths.JournalDB
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database configured")
	}
	return journal.NewSQLite(path)
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd.OutOrStdout(), time.Now().UTC())
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	day, err := time.ParseInLocation("2006-01-02", args[0], time.UTC)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return listDay(cmd.OutOrStdout(), day)
}

func listDay(out io.Writer, day time.Time) error {
	j, err := openJournalDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	entries, err := j.Day(day)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	printEntries(out, entries)
	return nil
}

func printEntries(out io.Writer, entries []journal.Entry) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSYMBOL\tACTION\tSTATUS\tSIZE\tPRICE\tSTOP\tSPREAD\tCOMMENT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%g\t%g\t%.1f\t%s\n",
			e.Timestamp.UTC().Format("15:04:05"), e.Symbol, e.Action, e.Status,
			e.Size, e.Price, e.Stop, e.SpreadPips, e.Comment)
	}
	_ = tw.Flush()

	s := journal.Summarize(entries)
	fmt.Fprintf(out, "\n%d entries\n", s.Total)
	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(out, "  %-14s %d\n", st, s.ByStatus[journal.Status(st)])
	}
}
