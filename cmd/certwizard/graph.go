package main

import (
	"fmt"

	"github.com/aretw0/certwizard/internal/presentation/graph"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:         "graph",
	Short:       "Export the step table as a Mermaid diagram",
	Annotations: map[string]string{annotationOffline: "true"},
	Long:        `Outputs a Mermaid flowchart (graph LR) of the configured steps and the order they unlock each other.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := cfg.Steps
		if len(steps) == 0 {
			steps = domain.DefaultSteps()
		}
		fmt.Print(graph.GenerateMermaid(steps, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
