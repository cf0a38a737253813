package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sower/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph entity[:trait,...] [entity...]",
	Short: "Export the resolution graph visualization",
	Long:  `Resolves the requested entities against an empty context and outputs a Mermaid diagram (graph TD) of the command ordering.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := loadEngine(cmd)
		if err != nil {
			fmt.Printf("Error initializing sower: %v\n", err)
			os.Exit(1)
		}

		plan, err := engine.Plan(engine.Init(), parseRequests(args)...)
		if err != nil {
			fmt.Printf("Error resolving plan: %v\n", err)
			os.Exit(1)
		}

		// Generate and print Mermaid graph
		output := graph.GenerateMermaid(plan)
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
