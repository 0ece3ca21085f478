package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatYAML outputs as YAML
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
	// FormatTable outputs as an aligned table with a styled header
	FormatTable OutputFormat = "table"
	// FormatRaw outputs strings and bytes as is
	FormatRaw OutputFormat = "raw"
)

// Tabler is implemented by results that can be shown as a table
type Tabler interface {
	Table() Table
}

// Table is a header plus rows of cells
type Table struct {
	Header []string
	Rows   [][]string
}

// Table implements Tabler
func (t Table) Table() Table { return t }

// OutputOptions configures output behavior
type OutputOptions struct {
	// Format is the output format (yaml, json, table, raw)
	Format OutputFormat

	// Writer is the destination (default os.Stdout)
	Writer io.Writer

	// Indent is the indentation for JSON output
	Indent string

	// JQ filters the result before formatting. Each value the expression
	// produces is written in turn. Not supported with FormatTable.
	JQ string

	// Styles styles the table header (default DefaultStyles)
	Styles *Styles
}

// Output writes the result to the configured destination
func Output(result any, opts OutputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	if opts.JQ != "" {
		if opts.Format == FormatTable {
			return fmt.Errorf("jq filter cannot be combined with table output")
		}
		values, err := runJQ(opts.JQ, result)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := output(w, v, opts); err != nil {
				return err
			}
		}
		return nil
	}
	return output(w, result, opts)
}

func output(w io.Writer, result any, opts OutputOptions) error {
	switch opts.Format {
	case FormatJSON, "":
		return outputJSON(w, result, opts.Indent)
	case FormatYAML:
		return outputYAML(w, result)
	case FormatTable:
		t, ok := result.(Tabler)
		if !ok {
			return fmt.Errorf("result of type %T cannot be shown as a table", result)
		}
		styles := DefaultStyles
		if opts.Styles != nil {
			styles = *opts.Styles
		}
		return outputTable(w, t.Table(), styles)
	case FormatRaw:
		return outputRaw(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// runJQ evaluates expr over the JSON form of result.
func runJQ(expr string, result any) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	// gojq only accepts plain JSON values.
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal jq input: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("unmarshal jq input: %w", err)
	}

	var values []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return values, nil
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		values = append(values, v)
	}
}

func outputJSON(w io.Writer, result any, indent string) error {
	enc := json.NewEncoder(w)
	if indent == "" {
		indent = "  "
	}
	enc.SetIndent("", indent)
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func outputTable(w io.Writer, t Table, styles Styles) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, h := range t.Header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		// Style each cell separately so tabwriter still sees the tabs.
		fmt.Fprint(tw, styles.Header.Render(h))
	}
	fmt.Fprintln(tw)
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func outputRaw(w io.Writer, result any) error {
	switch v := result.(type) {
	case []byte:
		_, err := w.Write(v)
		return err
	case string:
		_, err := io.WriteString(w, v)
		return err
	default:
		return outputYAML(w, result)
	}
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
