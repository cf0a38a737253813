package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sower/internal/presentation/tui"
)

var planCmd = &cobra.Command{
	Use:   "plan entity[:trait,...] [entity...]",
	Short: "Show the ordered command plan for a request",
	Long:  `Resolves the requested entities against an empty context and prints the commands that would run, in order, without executing anything.`,
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

		markdown := tui.PlanMarkdown(plan)

		plain, _ := cmd.Flags().GetBool("plain")
		if plain {
			fmt.Print(markdown)
			return
		}

		render := tui.NewRenderer()
		out, err := render(markdown)
		if err != nil {
			// Fall back to raw markdown when the terminal renderer fails.
			fmt.Print(markdown)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	planCmd.Flags().Bool("plain", false, "Print raw markdown without terminal styling")
	rootCmd.AddCommand(planCmd)
}
