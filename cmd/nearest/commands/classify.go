package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/nearest/pkg/classify"
	"github.com/haivivi/nearest/pkg/cli"
)

var classifyGroups []string

// classification is the classify output for one name.
type classification struct {
	Name   string `json:"name" yaml:"name"`
	Groups []int  `json:"groups" yaml:"groups"`
}

type classifications []classification

func (cs classifications) Table() cli.Table {
	t := cli.Table{Header: []string{"NAME", "GROUPS"}}
	for _, c := range cs {
		t.Rows = append(t.Rows, []string{c.Name, cli.FormatInts(c.Groups)})
	}
	return t
}

var classifyCmd = &cobra.Command{
	Use:   "classify NAME...",
	Short: "Show which groups names belong to",
	Long: `Show which groups names belong to.

Each --group adds a pattern; its position is the group number. Patterns are
anchored at the start of the name and may overlap.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(classifyGroups) == 0 {
			return fmt.Errorf("at least one --group is required")
		}
		c := classify.Compile(classifyGroups, classify.WithLogger(newLogger(cmd.ErrOrStderr())))
		out := make(classifications, 0, len(args))
		for _, name := range args {
			groups := c.Classify(name)
			if groups == nil {
				groups = []int{}
			}
			out = append(out, classification{Name: name, Groups: groups})
		}
		return output(cmd, out)
	},
}

func init() {
	classifyCmd.Flags().StringArrayVarP(&classifyGroups, "group", "g", nil, "group pattern, repeatable")
	rootCmd.AddCommand(classifyCmd)
}
