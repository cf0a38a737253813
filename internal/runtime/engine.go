package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

const defaultMaxDepth = 64

// Engine is the core resolution-and-execution runner. It is stateless
// between calls: every operation takes a context value and returns a new
// one, so sequencing is simply program order.
type Engine struct {
	index    *schema.Index
	logger   *slog.Logger
	maxDepth int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger for resolution tracing.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth overrides the trait-chain recursion cap.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// NewEngine creates an engine bound to an immutable schema index.
func NewEngine(index *schema.Index, opts ...EngineOption) *Engine {
	e := &Engine{
		index:    index,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index exposes the schema index the engine resolves against.
func (e *Engine) Index() *schema.Index { return e.index }

// Init returns a fresh working context.
func (e *Engine) Init() *domain.Context {
	return domain.NewContext()
}

// Produce satisfies the requests by executing the minimal correctly-ordered
// command set, taking existing context state into account. Requesting an
// entity that already exists with the requested traits is a no-op.
func (e *Engine) Produce(ctx *domain.Context, reqs ...domain.Request) (*domain.Context, error) {
	return e.produce(ctx, reqs, true)
}

// PreProduce creates the dependencies of the requested entities without
// producing the entities themselves (or applying the requested traits).
func (e *Engine) PreProduce(ctx *domain.Context, reqs ...domain.Request) (*domain.Context, error) {
	return e.produce(ctx, reqs, false)
}

func (e *Engine) produce(ctx *domain.Context, reqs []domain.Request, runRoots bool) (*domain.Context, error) {
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID)

	work := ctx.Clone()
	for _, req := range reqs {
		if req.As != "" {
			work.Meta.Rebinding[req.Entity] = req.As
		}
	}

	plan, g, err := e.plan(work, reqs, runID)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved execution plan", "steps", len(plan.Steps))

	skipped := make(map[domain.CommandName]bool)
	for _, step := range plan.Steps {
		n := g.nodes[step.Command]
		if !runRoots && shouldSkip(n, skipped) {
			skipped[step.Command] = true
			log.Debug("skipping root command", "command", step.Command)
			continue
		}
		log.Debug("executing command", "command", step.Command)
		work, err = e.execute(work, step.Command, step.Args)
		if err != nil {
			return nil, err
		}
	}

	// the As overlay is scoped to this run
	work.Meta.Rebinding = make(map[domain.EntityName]domain.BindingName, len(ctx.Meta.Rebinding))
	for k, v := range ctx.Meta.Rebinding {
		work.Meta.Rebinding[k] = v
	}
	return work, nil
}

// shouldSkip marks explicitly requested commands, plus everything that
// depends on a skipped command, as not-to-run for PreProduce/PreExec.
func shouldSkip(n *node, skipped map[domain.CommandName]bool) bool {
	if n == nil {
		return true
	}
	if n.rootRequired() {
		return true
	}
	for req := range n.requires {
		if skipped[req] {
			return true
		}
	}
	return false
}

// Exec runs one command with explicit arguments, first creating any missing
// entities its parameter tree requires (unless dependent creation is
// disabled on the context).
func (e *Engine) Exec(ctx *domain.Context, name domain.CommandName, args map[string]any) (*domain.Context, error) {
	return e.exec(ctx, name, args, true)
}

// PreExec creates the command's missing dependencies without running the
// command itself.
func (e *Engine) PreExec(ctx *domain.Context, name domain.CommandName, args map[string]any) (*domain.Context, error) {
	return e.exec(ctx, name, args, false)
}

func (e *Engine) exec(ctx *domain.Context, name domain.CommandName, args map[string]any, runSelf bool) (*domain.Context, error) {
	cmd, err := e.index.Command(name)
	if err != nil {
		return nil, err
	}

	work := ctx
	if work.Meta.DependentCreation {
		work, err = e.withDependentCreationDisabled(work, func(scoped *domain.Context) (*domain.Context, error) {
			return e.createRequirements(scoped, cmd, args)
		})
		if err != nil {
			return nil, err
		}
	}
	if !runSelf {
		return work, nil
	}
	return e.execute(work, name, args)
}

// createRequirements resolves and executes producers for every entity the
// command's parameter tree references that explicit arguments do not cover.
func (e *Engine) createRequirements(ctx *domain.Context, cmd *domain.Command, args map[string]any) (*domain.Context, error) {
	c := newCollector(e.index, ctx, emptyRestrictions(), e.maxDepth)
	c.visited[cmd.Name] = true // the command itself runs separately

	missing := cmd.MissingEntities(args)
	for _, entity := range sortedEntityNames(missing) {
		if err := c.require(entity, missing[entity], cmd.Name); err != nil {
			return nil, err
		}
	}
	return e.runGraph(ctx, c.g)
}

// runGraph finishes a populated graph (conflicts, destructive ordering,
// scheduling) and executes it.
func (e *Engine) runGraph(ctx *domain.Context, g *graph) (*domain.Context, error) {
	g.resolveConflicts()
	g.deprioritizeDestructive(e.index)
	order, err := g.sorted()
	if err != nil {
		return nil, err
	}
	work := ctx
	for _, name := range order {
		argsIn, err := mergeDemandArgs(name, g.nodes[name].demands())
		if err != nil {
			return nil, err
		}
		work, err = e.execute(work, name, argsIn)
		if err != nil {
			return nil, err
		}
	}
	return work, nil
}

// withDependentCreationDisabled runs fn against a context whose re-entrancy
// flag is off and restores the flag on the way out, error or not. Dependency
// creation triggered while already creating a dependency must not fan out
// into further chains.
func (e *Engine) withDependentCreationDisabled(ctx *domain.Context, fn func(*domain.Context) (*domain.Context, error)) (*domain.Context, error) {
	scoped := ctx.Clone()
	scoped.Meta.DependentCreation = false
	out, err := fn(scoped)
	if err != nil {
		return nil, err
	}
	restored := out.Clone()
	restored.Meta.DependentCreation = ctx.Meta.DependentCreation
	return restored, nil
}

// Rebind runs fn against a context where the given entities resolve to
// different bindings, then restores the original rebinding table on the
// returned context. This lets several instances of the same entity kind
// coexist.
func (e *Engine) Rebind(ctx *domain.Context, bindings map[domain.EntityName]domain.BindingName, fn func(*domain.Context) (*domain.Context, error)) (*domain.Context, error) {
	if fn == nil {
		return nil, fmt.Errorf("rebind requires a scoped function")
	}
	scoped := ctx.Clone()
	for entity, binding := range bindings {
		if err := e.index.Entity(entity); err != nil {
			return nil, err
		}
		scoped.Meta.Rebinding[entity] = binding
	}

	out, err := fn(scoped)
	if err != nil {
		return nil, err
	}
	restored := out.Clone()
	restored.Meta.Rebinding = make(map[domain.EntityName]domain.BindingName, len(ctx.Meta.Rebinding))
	for k, v := range ctx.Meta.Rebinding {
		restored.Meta.Rebinding[k] = v
	}
	return restored, nil
}

func sortedEntityNames(m map[domain.EntityName][]domain.TraitName) []domain.EntityName {
	out := make([]domain.EntityName, 0, len(m))
	for e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
