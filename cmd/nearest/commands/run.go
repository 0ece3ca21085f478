package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/nearest/pkg/cli"
	"github.com/haivivi/nearest/pkg/event"
	"github.com/haivivi/nearest/pkg/scene"
	"github.com/haivivi/nearest/pkg/source"
)

var (
	runFile    string
	runOut     string
	runShowAll bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a scenario file and print the results",
	Long: `Replay a scenario against a fresh scene.

The scenario is read from a local path or an s3://bucket/key location.
Only query and dump results are printed unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runFile == "" {
			return fmt.Errorf("-f is required")
		}
		ctx := cmd.Context()
		data, err := source.ReadFile(ctx, runFile)
		if err != nil {
			return err
		}
		sc, err := event.ParseScenario(data)
		if err != nil {
			return fmt.Errorf("%s: %w", runFile, err)
		}

		results, err := scene.Replay(ctx, sc, nil, newLogger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		if !runShowAll {
			results = reported(results)
		}

		if runOut == "" {
			return output(cmd, cli.Results(results))
		}
		var buf bytes.Buffer
		err = cli.Output(cli.Results(results), cli.OutputOptions{
			Format: cli.OutputFormat(formatOutput),
			Writer: &buf,
			JQ:     jqFilter,
			Styles: &cli.PlainStyles,
		})
		if err != nil {
			return err
		}
		return source.WriteFile(ctx, runOut, buf.Bytes())
	},
}

// reported keeps the results that carry an answer.
func reported(results []event.Result) []event.Result {
	var out []event.Result
	for _, r := range results {
		if r.Op == event.OpQuery || r.Op == event.OpDump || r.Error != "" {
			out = append(out, r)
		}
	}
	return out
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "scenario file (path or s3://bucket/key)")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "write the output to a path or s3://bucket/key")
	runCmd.Flags().BoolVar(&runShowAll, "all", false, "print the result of every event")
	rootCmd.AddCommand(runCmd)
}
