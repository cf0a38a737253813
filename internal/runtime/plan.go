package runtime

import (
	"sort"

	"github.com/aretw0/sower/pkg/domain"
)

// Plan resolves the requests into an execution plan without running
// anything. The argument-pattern merge happens here, so contradictory trait
// demands surface before any command executes.
func (e *Engine) Plan(ctx *domain.Context, reqs ...domain.Request) (*domain.Plan, error) {
	work := ctx.Clone()
	for _, req := range reqs {
		if req.As != "" {
			work.Meta.Rebinding[req.Entity] = req.As
		}
	}
	plan, _, err := e.plan(work, reqs, "")
	return plan, err
}

func (e *Engine) plan(ctx *domain.Context, reqs []domain.Request, runID string) (*domain.Plan, *graph, error) {
	restr, err := newRestrictions(e.index, ctx, reqs)
	if err != nil {
		return nil, nil, err
	}
	c := newCollector(e.index, ctx, restr, e.maxDepth)
	for _, req := range reqs {
		if err := c.requireRequest(req); err != nil {
			return nil, nil, err
		}
	}
	c.g.resolveConflicts()
	c.g.deprioritizeDestructive(e.index)

	order, err := c.g.sorted()
	if err != nil {
		return nil, nil, err
	}

	plan := &domain.Plan{RunID: runID}
	for _, name := range order {
		args, err := mergeDemandArgs(name, c.g.nodes[name].demands())
		if err != nil {
			return nil, nil, err
		}
		plan.Steps = append(plan.Steps, domain.PlanStep{Command: name, Args: args})
		plan.Nodes = append(plan.Nodes, e.planNode(c.g, name))
	}
	return plan, c.g, nil
}

func (e *Engine) planNode(g *graph, name domain.CommandName) domain.PlanNode {
	n := g.nodes[name]
	pn := domain.PlanNode{Command: name, Root: n.rootRequired()}
	for req := range n.requires {
		if _, live := g.nodes[req]; live {
			pn.Requires = append(pn.Requires, req)
		}
	}
	sort.Slice(pn.Requires, func(i, j int) bool { return pn.Requires[i] < pn.Requires[j] })

	if cmd, err := e.index.Command(name); err == nil {
		if len(cmd.Delete) > 0 {
			pn.Destructive = true
		} else {
			for _, entity := range cmd.Touches() {
				for _, t := range e.index.TraitsByCommand(entity, name) {
					if len(t.From) > 0 {
						pn.Destructive = true
					}
				}
			}
		}
	}
	return pn
}
