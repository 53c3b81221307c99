package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yairfalse/autoshutdown/internal/config"
)

var (
	version    = "0.1.0"
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "autoshutdown",
		Short: "Stop tagged dev instances and audit every shutdown",
		Long: `autoshutdown - stop idle development instances

autoshutdown finds running EC2 instances tagged Environment=Dev and
AutoShutdown=True, stops them, and writes one audit record per stopped
instance to DynamoDB.

Configuration comes from an optional YAML file overlaid by environment
variables (DDB_TABLE_NAME, AWS_REGION, LOG_LEVEL, ...).`,
		Version:      version,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`autoshutdown {{.Version}}
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatTags renders tags as sorted key=value pairs.
func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, ",")
}
