package domain

// Plan is a resolved, ordered, not-yet-executed view of one request: what
// would run, with which synthesized arguments, and how the commands depend
// on each other.
type Plan struct {
	RunID string
	Steps []PlanStep
	Nodes []PlanNode
}

// PlanStep is one scheduled command execution.
type PlanStep struct {
	Command CommandName
	Args    map[string]any
}

// PlanNode describes one requirement-graph node for visualization.
type PlanNode struct {
	Command  CommandName
	Requires []CommandName
	// Root marks commands the caller asked for directly.
	Root bool
	// Destructive marks commands that delete an entity or strip a trait.
	Destructive bool
}
