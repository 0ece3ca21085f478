package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/nearest/pkg/cli"
)

var (
	verbose      bool
	formatOutput string
	jqFilter     string
)

var rootCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Grouped nearest-neighbor index",
	Long: `nearest — find the nearest objects of a group.

Objects are classified into groups by matching their names against an
ordered list of patterns. Each group keeps its own k-d tree.

Commands:
  run       Replay a scenario file and print the results
  serve     Serve a scene over websocket
  classify  Show which groups names belong to
  schema    Print the JSON schema of scenario files
  version   Version information

Examples:
  nearest run -f arena.yaml
  nearest run -f s3://scenarios/arena.yaml --format json --jq '.[].ids'
  nearest serve --config nearest.yaml --addr :9000
  nearest classify -g 'enemy_.*' -g enemy_boss enemy_boss player`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&jqFilter, "jq", "", "jq expression applied to the output (json, yaml)")
}

// newLogger logs to w at warn level, or debug with --verbose.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func output(cmd *cobra.Command, result any) error {
	return cli.Output(result, cli.OutputOptions{
		Format: cli.OutputFormat(formatOutput),
		Writer: cmd.OutOrStdout(),
		JQ:     jqFilter,
	})
}
