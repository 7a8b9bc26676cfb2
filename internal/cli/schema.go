package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/pkg/schema"
)

// schemaTargets lists the documents a schema can be generated for.
var schemaTargets = map[string]interface{}{
	"report":  &engine.Report{},
	"inspect": &InspectSummary{},
}

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:       "schema [report|inspect]",
	Short:     "Output the JSON schema of the structured output",
	Long:      `Output the JSON schema of the document printed by 'gambit run --output json' (report) or 'gambit inspect --output json' (inspect).`,
	Hidden:    true,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"report", "inspect"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "report"
		if len(args) == 1 {
			target = args[0]
		}

		schemaBytes, err := newSchema(target)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(schemaBytes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func newSchema(target string) ([]byte, error) {
	v, ok := schemaTargets[target]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (expected report or inspect)", target)
	}
	return schema.For(v, "gambit "+target)
}
