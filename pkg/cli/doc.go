// Package cli provides the configuration and output helpers shared by the
// nearest command-line tool.
//
// This package includes:
//   - Configuration loading (YAML, from a local path or s3:// location)
//   - Registry and logger construction from configuration
//   - Output formatting (JSON, YAML, table) with an optional jq filter
//
// Example usage:
//
//	cfg, err := cli.LoadConfig(ctx, "s3://configs/arena/nearest.yaml")
//	reg, err := cfg.Registry.Open(logger)
//
//	cli.Output(results, cli.OutputOptions{
//	    Format: cli.FormatTable,
//	    JQ:     ".[] | select(.op == \"query\")",
//	})
package cli
