package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tradesim/internal/strategy"
)

//nolint:gochecknoglobals // Cobra boilerplate
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	Long: `Lists every registered strategy with its parameters, defaults and
descriptions. These names go into a task's file_name field.`,
	Args: cobra.NoArgs,
	RunE: runStrategies,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	descriptors := strategy.All()
	if len(descriptors) == 0 {
		fmt.Println("No strategies registered.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Strategy", "Parameter", "Default", "Description")

	for _, desc := range descriptors {
		names := make([]string, 0, len(desc.Params))
		for name := range desc.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		if len(names) == 0 {
			table.Append(desc.Name, "-", "-", "-")
			continue
		}
		for i, name := range names {
			label := ""
			if i == 0 {
				label = desc.Name
			}
			param := desc.Params[name]
			table.Append(
				label,
				name,
				fmt.Sprintf("%v", param.Default),
				param.Description,
			)
		}
	}

	table.Render()
	fmt.Printf("\n%d strategies\n", len(descriptors))

	return nil
}
