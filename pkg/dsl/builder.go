package dsl

import (
	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// Builder manages schema construction.
type Builder struct {
	commands []*CommandBuilder
	traits   []*domain.Trait
}

// New creates a new schema builder.
func New() *Builder {
	return &Builder{}
}

// Command starts a new command declaration. Commands keep their declaration
// order, which decides producer priority for ambiguous entities.
func (b *Builder) Command(name string) *CommandBuilder {
	cb := &CommandBuilder{
		builder: b,
		cmd: &domain.Command{
			Name:   domain.CommandName(name),
			Params: make(map[string]domain.Param),
		},
	}
	b.commands = append(b.commands, cb)
	return cb
}

// Trait declares a trait conferred by executing a command.
func (b *Builder) Trait(name, entity string) *TraitBuilder {
	t := &domain.Trait{
		Name:   domain.TraitName(name),
		Entity: domain.EntityName(entity),
	}
	b.traits = append(b.traits, t)
	return &TraitBuilder{builder: b, trait: t}
}

// Build compiles the declarations into a schema index.
func (b *Builder) Build() (*schema.Index, error) {
	commands := make([]*domain.Command, 0, len(b.commands))
	for _, cb := range b.commands {
		commands = append(commands, cb.cmd)
	}
	return schema.New(commands, b.traits)
}

// CommandBuilder configures one command.
type CommandBuilder struct {
	builder *Builder
	cmd     *domain.Command
}

// Arg declares a parameter with a static default value.
func (cb *CommandBuilder) Arg(name string, value any) *CommandBuilder {
	cb.cmd.Params[name] = domain.ValueParam{Value: value}
	return cb
}

// GenArg declares a parameter whose default is generated per execution.
func (cb *CommandBuilder) GenArg(name string, generate func() any) *CommandBuilder {
	cb.cmd.Params[name] = domain.GeneratorParam{Generate: generate}
	return cb
}

// EntityArg declares a parameter fed from another entity, optionally
// constrained to carry traits.
func (cb *CommandBuilder) EntityArg(name, entity string, traits ...string) *CommandBuilder {
	ref := domain.EntityParam{Entity: domain.EntityName(entity)}
	for _, t := range traits {
		ref.WithTraits = append(ref.WithTraits, domain.TraitName(t))
	}
	cb.cmd.Params[name] = ref
	return cb
}

// NestedArg declares a container parameter holding child parameters.
func (cb *CommandBuilder) NestedArg(name string, children map[string]domain.Param) *CommandBuilder {
	cb.cmd.Params[name] = domain.ContainerParam{Children: children}
	return cb
}

// Produces declares that the command creates the entity from the named
// resolver output.
func (cb *CommandBuilder) Produces(entity, from string) *CommandBuilder {
	cb.cmd.Produce = append(cb.cmd.Produce, domain.Instruction{Entity: domain.EntityName(entity), From: from})
	return cb
}

// Updates declares that the command replaces the entity's value with the
// named resolver output.
func (cb *CommandBuilder) Updates(entity, from string) *CommandBuilder {
	cb.cmd.Update = append(cb.cmd.Update, domain.Instruction{Entity: domain.EntityName(entity), From: from})
	return cb
}

// Deletes declares that the command removes the entity from the context.
func (cb *CommandBuilder) Deletes(entity string) *CommandBuilder {
	cb.cmd.Delete = append(cb.cmd.Delete, domain.Instruction{Entity: domain.EntityName(entity)})
	return cb
}

// Resolver installs the command's side-effect function.
func (cb *CommandBuilder) Resolver(fn domain.Resolver) *CommandBuilder {
	cb.cmd.Resolve = fn
	return cb
}

// Echo installs a resolver that reflects the merged arguments back under
// each given output key. Handy for fixtures whose value is the arguments.
func (cb *CommandBuilder) Echo(outputs ...string) *CommandBuilder {
	cb.cmd.Resolve = func(args map[string]any) (map[string]any, error) {
		out := make(map[string]any, len(outputs))
		for _, key := range outputs {
			out[key] = args
		}
		return out, nil
	}
	return cb
}

// Command starts the next command declaration on the parent builder.
func (cb *CommandBuilder) Command(name string) *CommandBuilder {
	return cb.builder.Command(name)
}

// Trait starts a trait declaration on the parent builder.
func (cb *CommandBuilder) Trait(name, entity string) *TraitBuilder {
	return cb.builder.Trait(name, entity)
}

// Build compiles the parent builder.
func (cb *CommandBuilder) Build() (*schema.Index, error) {
	return cb.builder.Build()
}

// TraitBuilder configures one trait.
type TraitBuilder struct {
	builder *Builder
	trait   *domain.Trait
}

// Via ties the trait to the command conferring it, with an optional literal
// argument pattern the execution must match.
func (tb *TraitBuilder) Via(command string, args map[string]any) *TraitBuilder {
	tb.trait.Exec = domain.ExecStep{Command: domain.CommandName(command), Args: args}
	return tb
}

// From lists prerequisite traits; gaining this trait removes whichever of
// them the entity carries.
func (tb *TraitBuilder) From(traits ...string) *TraitBuilder {
	for _, t := range traits {
		tb.trait.From = append(tb.trait.From, domain.TraitName(t))
	}
	return tb
}

// Command starts the next command declaration on the parent builder.
func (tb *TraitBuilder) Command(name string) *CommandBuilder {
	return tb.builder.Command(name)
}

// Trait starts the next trait declaration on the parent builder.
func (tb *TraitBuilder) Trait(name, entity string) *TraitBuilder {
	return tb.builder.Trait(name, entity)
}

// Build compiles the parent builder.
func (tb *TraitBuilder) Build() (*schema.Index, error) {
	return tb.builder.Build()
}
