package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

var actionsCmd = &cobra.Command{
	Use:   "actions [phase]",
	Short: "Print the action catalog",
	Long: `Print the legal actions per phase as JSON. With no argument the
full catalog is printed; with a phase name only that phase's actions.

Examples:
  orchd actions
  orchd actions pr_created`,
	Args: cobra.MaximumNArgs(1),
	RunE: printActions,
}

func printActions(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		phase := workflow.Phase(args[0])
		if !phase.Valid() {
			return fmt.Errorf("unknown phase %q", args[0])
		}
		return printJSON(workflow.ActionsFor(phase))
	}

	catalog := make(map[workflow.Phase][]workflow.ActionDefinition)
	for _, phase := range workflow.AllPhases() {
		catalog[phase] = workflow.ActionsFor(phase)
	}
	return printJSON(catalog)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
