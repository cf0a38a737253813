package runtime

import (
	"github.com/aretw0/sower/pkg/domain"
)

// execute runs one command against the context: resolve arguments, invoke
// the application resolver, then apply produce/update/delete instructions in
// that order. The returned context is a fresh value; the input context is
// never mutated. A resolver error aborts the request and is surfaced
// verbatim.
func (e *Engine) execute(ctx *domain.Context, name domain.CommandName, input map[string]any) (*domain.Context, error) {
	cmd, err := e.index.Command(name)
	if err != nil {
		return nil, err
	}
	args, err := e.resolveArgs(ctx, cmd, input)
	if err != nil {
		return nil, err
	}

	output, err := cmd.Resolve(args)
	if err != nil {
		return nil, err
	}

	next := ctx.Clone()

	for _, inst := range cmd.Produce {
		binding := next.BindingFor(inst.Entity)
		if _, occupied := next.Entities[binding]; occupied {
			return nil, &domain.EntityAlreadyExistsError{Entity: inst.Entity, Binding: binding, Command: cmd.Name}
		}
		next.Entities[binding] = output[inst.From]

		added, removed := e.traitDelta(next, inst.Entity, binding, cmd.Name, args)
		next.Meta.CurrentTraits[binding] = applyTraitDelta(nil, added, removed)
		next.Meta.Trails[binding] = &domain.Trail{
			ProducedBy: domain.TrailEntry{Command: cmd.Name, Added: added, Removed: removed},
		}
	}

	for _, inst := range cmd.Update {
		binding := next.BindingFor(inst.Entity)
		if _, ok := next.Entities[binding]; !ok {
			return nil, &domain.EntityNotFoundError{Entity: inst.Entity, Binding: binding, Command: cmd.Name, Op: "update"}
		}
		if inst.From != "" {
			next.Entities[binding] = output[inst.From]
		}
		trail := next.Meta.Trails[binding]
		if trail == nil {
			return nil, &domain.UntrackedEntityError{Entity: inst.Entity, Binding: binding}
		}

		added, removed := e.traitDelta(next, inst.Entity, binding, cmd.Name, args)
		next.Meta.CurrentTraits[binding] = applyTraitDelta(next.Meta.CurrentTraits[binding], added, removed)
		trail.UpdatedBy = append(trail.UpdatedBy, domain.TrailEntry{Command: cmd.Name, Added: added, Removed: removed})
	}

	for _, inst := range cmd.Delete {
		binding := next.BindingFor(inst.Entity)
		if _, ok := next.Entities[binding]; !ok {
			return nil, &domain.EntityNotFoundError{Entity: inst.Entity, Binding: binding, Command: cmd.Name, Op: "delete"}
		}
		delete(next.Entities, binding)
		delete(next.Meta.CurrentTraits, binding)
		delete(next.Meta.Trails, binding)
	}

	return next, nil
}

// traitDelta recomputes what an execution did to an entity's trait set: the
// traits tied to the command whose match predicate accepts the merged
// arguments are gained, and whichever of their prerequisites the entity
// currently carries are lost.
func (e *Engine) traitDelta(ctx *domain.Context, entity domain.EntityName, binding domain.BindingName, cmd domain.CommandName, args map[string]any) (added, removed []domain.TraitName) {
	for _, t := range e.index.TraitsByCommand(entity, cmd) {
		if !t.Exec.Matches(args) {
			continue
		}
		added = append(added, t.Name)
		for _, from := range t.From {
			if ctx.HasTrait(binding, from) {
				removed = append(removed, from)
			}
		}
	}
	return added, removed
}

// applyTraitDelta returns current minus removed plus added, deduplicated,
// preserving order of survivors then additions.
func applyTraitDelta(current, added, removed []domain.TraitName) []domain.TraitName {
	drop := make(map[domain.TraitName]bool, len(removed))
	for _, t := range removed {
		drop[t] = true
	}
	var out []domain.TraitName
	for _, t := range current {
		if !drop[t] {
			out = append(out, t)
		}
	}
	for _, t := range added {
		dup := false
		for _, have := range out {
			if have == t {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}
