package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/autoshutdown/internal/journal"
	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

var (
	historyJournal   string
	historyExecution string
	historyLimit     int
	historyJSON      bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show shutdowns recorded in the local journal",
	Long: `Read audit entries from the local journal written by
"autoshutdown run --journal". DynamoDB is not queried.`,
	Example: `  autoshutdown history --journal ./shutdowns.db
  autoshutdown history --journal ./shutdowns.db --execution nightly-0412
  autoshutdown history --limit 5 --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyJournal, "journal", "", "Journal path (default: journal.path / AUTOSHUTDOWN_JOURNAL)")
	historyCmd.Flags().StringVar(&historyExecution, "execution", "", "Only show entries of this execution id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	path := historyJournal
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return errors.New("no journal configured: pass --journal or set AUTOSHUTDOWN_JOURNAL")
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	var entries []shutdown.LogEntry
	if historyExecution != "" {
		entries, err = j.Execution(historyExecution)
	} else {
		entries, err = j.Recent(historyLimit)
	}
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	if historyJSON {
		if entries == nil {
			entries = []shutdown.LogEntry{}
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}
	return writeEntries(cmd.OutOrStdout(), entries)
}

func writeEntries(out io.Writer, entries []shutdown.LogEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No shutdowns recorded.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXECUTION\tINSTANCE\tSHUTDOWN\tTAGS")
	for _, e := range entries {
		ts := time.Unix(e.ShutdownTimestamp, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ExecutionID, e.InstanceID, ts, formatTags(e.Tags))
	}
	return w.Flush()
}
