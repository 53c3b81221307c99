package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yairfalse/autoshutdown/internal/app"
)

var (
	runExecutionID string
	runJournal     string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stop matching instances once and record the shutdown",
	Long: `Run a single shutdown invocation.

Matching instances are stopped with one StopInstances call and one audit
entry per instance is written to the DynamoDB table named by DDB_TABLE_NAME.
The first failing step aborts the run; nothing is retried or undone.

The result is printed as JSON on stdout; logs go to stderr.`,
	Example: `  autoshutdown run                              # New execution id
  autoshutdown run --execution-id nightly-0412  # Caller-chosen id
  autoshutdown run --journal ./shutdowns.db     # Also keep a local copy`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runExecutionID, "execution-id", "", "Execution id recorded on every entry (default: random UUID)")
	runCmd.Flags().StringVar(&runJournal, "journal", "", "Also write entries to a local journal at this path")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runJournal != "" {
		cfg.Journal.Path = runJournal
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, app.Options{LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	executionID := runExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}

	result, err := a.Workflow.Run(ctx, executionID)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), result)
}
