package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sower/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart syntax string from a plan.
// It applies semantic styling:
// - Root (explicitly requested): ((Circle))
// - Destructive (deletes an entity or strips a trait): [[Subroutine]]
// - Default: [Rectangle]
// Edges point from a requirement to the command that depends on it, so the
// diagram reads in execution order.
func GenerateMermaid(plan *domain.Plan) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range plan.Nodes {
		safeID := sanitizeMermaidID(string(n.Command))

		opener, closer := "[", "]"
		switch {
		case n.Root:
			opener, closer = "((", "))"
		case n.Destructive:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, n.Command, closer))

		for _, req := range n.Requires {
			safeReq := sanitizeMermaidID(string(req))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeReq, safeID))
		}
	}

	if hasDestructive(plan) {
		sb.WriteString("\n    %% Destructive commands run after consumers of the prior state\n")
		sb.WriteString("    classDef destructive fill:#ffebee,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		for _, n := range plan.Nodes {
			if n.Destructive {
				sb.WriteString(fmt.Sprintf("    class %s destructive;\n", sanitizeMermaidID(string(n.Command))))
			}
		}
	}
	return sb.String()
}

func hasDestructive(plan *domain.Plan) bool {
	for _, n := range plan.Nodes {
		if n.Destructive {
			return true
		}
	}
	return false
}

// sanitizeMermaidID strips characters Mermaid treats as syntax.
func sanitizeMermaidID(id string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		" ", "_",
		".", "_",
		"-", "_",
		"(", "",
		")", "",
		"\"", "",
	)
	return replacer.Replace(id)
}
