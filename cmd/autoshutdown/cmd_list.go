package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/autoshutdown/internal/app"
	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show instances that the next run would stop",
	Long: `List the instances matching the shutdown filter without stopping
anything or writing audit entries.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, app.Options{LogOutput: cmd.ErrOrStderr(), DiscoverOnly: true})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	instances, err := a.Workflow.Discover(ctx)
	if err != nil {
		return err
	}

	return writeInstances(cmd.OutOrStdout(), instances)
}

func writeInstances(out io.Writer, instances []shutdown.Instance) error {
	if len(instances) == 0 {
		_, err := fmt.Fprintln(out, "No matching running instances.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tSTATE\tTAGS")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", inst.ID, inst.State, formatTags(shutdown.FlattenTags(inst.Tags)))
	}
	return w.Flush()
}
