package runtime

import (
	"fmt"

	"github.com/aretw0/sower/pkg/domain"
)

// resolveTrait satisfies one trait on one entity.
//
// The trail is the record of already-satisfied traits for bound entities: a
// trait whose command already ran and conferred it is done; a trait whose
// command ran without conferring it can never be gained, because a command
// does not run twice with different arguments on the same entity. Otherwise
// the trait's command is scheduled, carrying the argument pattern the
// executor later merges into default arguments, and the trait's
// prerequisites are resolved first (any one alternative suffices).
func (c *collector) resolveTrait(entity domain.EntityName, binding domain.BindingName, name domain.TraitName, trail *domain.Trail, requiredBy domain.CommandName, depth int) error {
	if depth > c.maxDepth {
		return fmt.Errorf("trait chain for %q on entity %q exceeds depth %d; the prerequisite relation likely contains a cycle", name, entity, c.maxDepth)
	}
	if err := c.restr.checkTrait(entity, name, requiredBy); err != nil {
		return err
	}
	t, err := c.ix.Trait(entity, name)
	if err != nil {
		return err
	}

	if c.ctx.HasTrait(binding, name) {
		return nil
	}
	if trail != nil {
		if entry, ok := trail.EntryFor(t.Exec.Command); ok {
			for _, a := range entry.Added {
				if a == name {
					return nil
				}
			}
			return &domain.TraitMismatchError{Entity: entity, Trait: name, Command: t.Exec.Command}
		}
	}

	demand := &traitDemand{Entity: entity, Trait: name, Step: t.Exec}
	added, err := c.g.registerCommands([]domain.CommandName{t.Exec.Command}, requiredBy, demand)
	if err != nil {
		return err
	}
	if err := c.scanNew(added); err != nil {
		return err
	}

	if len(t.From) == 0 {
		return nil
	}
	for _, p := range t.From {
		if c.ctx.HasTrait(binding, p) {
			return nil
		}
	}
	var reasons []error
	for _, p := range t.From {
		err := c.resolveTrait(entity, binding, p, trail, t.Exec.Command, depth+1)
		if err == nil {
			return nil
		}
		reasons = append(reasons, err)
	}

	// Unsatisfiable prerequisites sink this trait's command. When the node
	// is one alternative inside a conflict group that still has another
	// live path, dropping just the node keeps the resolution alive.
	if c.droppable(t.Exec.Command) {
		c.g.removeNode(t.Exec.Command)
		return nil
	}
	return &domain.PrerequisiteUnsatisfiedError{Trait: name, Reasons: reasons}
}
