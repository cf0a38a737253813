package sower

import (
	"log/slog"

	"github.com/aretw0/sower/internal/runtime"
	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// Engine is the high-level entry point for the Sower library. It wraps the
// internal runtime and provides a simplified API for consumers.
type Engine struct {
	rt          *runtime.Engine
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxDepth caps trait-chain recursion depth. Resolution fails with an
// error instead of looping when a schema's prerequisite chain cycles.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxDepth(depth))
	}
}

// Request re-exports the request shape so callers rarely need to import
// pkg/domain directly.
type Request = domain.Request

// Want builds a request for an entity with trait constraints.
func Want(entity domain.EntityName, traits ...domain.TraitName) Request {
	return domain.Want(entity, traits...)
}

// New initializes an engine bound to a schema index.
func New(index *schema.Index, opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	runtimeOpts := eng.runtimeOpts
	if eng.logger != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithLogger(eng.logger))
	}
	eng.rt = runtime.NewEngine(index, runtimeOpts...)
	return eng
}

// Init returns a fresh working context for one fixture session.
func (e *Engine) Init() *domain.Context {
	return e.rt.Init()
}

// Produce satisfies the requests against the context, executing whatever
// commands are missing, and returns the new context. Requesting state the
// context already satisfies executes nothing.
func (e *Engine) Produce(ctx *domain.Context, reqs ...Request) (*domain.Context, error) {
	return e.rt.Produce(ctx, reqs...)
}

// ProduceNames is Produce for plain entity names with no trait constraints.
func (e *Engine) ProduceNames(ctx *domain.Context, entities ...domain.EntityName) (*domain.Context, error) {
	reqs := make([]Request, 0, len(entities))
	for _, name := range entities {
		reqs = append(reqs, Request{Entity: name})
	}
	return e.rt.Produce(ctx, reqs...)
}

// PreProduce creates the dependencies of the requested entities without
// producing the entities themselves.
func (e *Engine) PreProduce(ctx *domain.Context, reqs ...Request) (*domain.Context, error) {
	return e.rt.PreProduce(ctx, reqs...)
}

// Exec runs one command with explicit arguments, creating missing
// dependencies first.
func (e *Engine) Exec(ctx *domain.Context, name domain.CommandName, args map[string]any) (*domain.Context, error) {
	return e.rt.Exec(ctx, name, args)
}

// PreExec creates a command's missing dependencies without running the
// command itself.
func (e *Engine) PreExec(ctx *domain.Context, name domain.CommandName, args map[string]any) (*domain.Context, error) {
	return e.rt.PreExec(ctx, name, args)
}

// Rebind evaluates fn against a context where the given entities resolve to
// different bindings, restoring the original table afterwards.
func (e *Engine) Rebind(ctx *domain.Context, bindings map[domain.EntityName]domain.BindingName, fn func(*domain.Context) (*domain.Context, error)) (*domain.Context, error) {
	return e.rt.Rebind(ctx, bindings, fn)
}

// Plan resolves the requests into an ordered execution plan without running
// anything, for inspection or visualization.
func (e *Engine) Plan(ctx *domain.Context, reqs ...Request) (*domain.Plan, error) {
	return e.rt.Plan(ctx, reqs...)
}
