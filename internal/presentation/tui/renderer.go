package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/sower/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// It auto-detects the terminal background for light/dark styling.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// PlanMarkdown renders an execution plan as a markdown summary suitable for
// terminal display.
func PlanMarkdown(plan *domain.Plan) string {
	var sb strings.Builder
	sb.WriteString("# Execution plan\n\n")
	if len(plan.Steps) == 0 {
		sb.WriteString("Nothing to execute: the context already satisfies the request.\n")
		return sb.String()
	}
	for i, step := range plan.Steps {
		node := plan.Nodes[i]
		marker := ""
		if node.Root {
			marker = " *(requested)*"
		}
		if node.Destructive {
			marker += " *(destructive)*"
		}
		fmt.Fprintf(&sb, "%d. `%s`%s\n", i+1, step.Command, marker)
		if len(node.Requires) > 0 {
			fmt.Fprintf(&sb, "   - after: %s\n", joinCommands(node.Requires))
		}
		if len(step.Args) > 0 {
			fmt.Fprintf(&sb, "   - args: `%v`\n", step.Args)
		}
	}
	return sb.String()
}

func joinCommands(names []domain.CommandName) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, "`"+string(n)+"`")
	}
	return strings.Join(parts, ", ")
}
