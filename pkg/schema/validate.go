package schema

import (
	"fmt"

	"github.com/aretw0/sower/pkg/domain"
)

// Validate runs the static checks an index cannot enforce during
// construction: every cross-reference must point at a declared name, trait
// commands must actually touch their entity, and the trait prerequisite
// relation must be acyclic.
// Returns an error with all failures found.
func (ix *Index) Validate() error {
	var errs []error

	for _, cmd := range ix.Commands() {
		if cmd.Resolve == nil {
			errs = append(errs, &ValidationError{Scope: "command", Name: string(cmd.Name), Reason: "has no resolver"})
		}
		for entity, traits := range cmd.RequiredEntities() {
			if err := ix.Entity(entity); err != nil {
				errs = append(errs, &ValidationError{
					Scope:  "command",
					Name:   string(cmd.Name),
					Reason: fmt.Sprintf("references undeclared entity %q", entity),
				})
				continue
			}
			for _, tn := range traits {
				if _, err := ix.Trait(entity, tn); err != nil {
					errs = append(errs, &ValidationError{
						Scope:  "command",
						Name:   string(cmd.Name),
						Reason: fmt.Sprintf("requires unknown trait %q on entity %q", tn, entity),
					})
				}
			}
		}
	}

	for _, entity := range ix.Entities() {
		for _, t := range ix.Traits(entity) {
			errs = append(errs, ix.validateTrait(entity, t)...)
		}
		errs = append(errs, ix.validateTraitCycles(entity)...)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func (ix *Index) validateTrait(entity domain.EntityName, t *domain.Trait) []error {
	var errs []error

	cmd, err := ix.Command(t.Exec.Command)
	if err != nil {
		return []error{&ValidationError{
			Scope:  "trait",
			Name:   string(t.Name),
			Reason: fmt.Sprintf("exec command %q is not declared", t.Exec.Command),
		}}
	}

	touches := false
	for _, touched := range cmd.Touches() {
		if touched == entity {
			touches = true
			break
		}
	}
	if !touches {
		errs = append(errs, &ValidationError{
			Scope:  "trait",
			Name:   string(t.Name),
			Reason: fmt.Sprintf("exec command %q does not touch entity %q", t.Exec.Command, entity),
		})
	}
	if cmd.Deletes(entity) {
		errs = append(errs, &ValidationError{
			Scope:  "trait",
			Name:   string(t.Name),
			Reason: fmt.Sprintf("exec command %q deletes entity %q; a deleted entity cannot carry traits", t.Exec.Command, entity),
		})
	}

	for _, from := range t.From {
		if _, err := ix.Trait(entity, from); err != nil {
			errs = append(errs, &ValidationError{
				Scope:  "trait",
				Name:   string(t.Name),
				Reason: fmt.Sprintf("prerequisite %q is not declared on entity %q", from, entity),
			})
		}
	}
	return errs
}

// validateTraitCycles rejects prerequisite chains that loop back on
// themselves via a depth-first walk over the From relation.
func (ix *Index) validateTraitCycles(entity domain.EntityName) []error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[domain.TraitName]int)
	var errs []error

	var walk func(name domain.TraitName) bool
	walk = func(name domain.TraitName) bool {
		switch state[name] {
		case visiting:
			return true
		case done:
			return false
		}
		state[name] = visiting
		if t, err := ix.Trait(entity, name); err == nil {
			for _, from := range t.From {
				if walk(from) {
					state[name] = done
					return true
				}
			}
		}
		state[name] = done
		return false
	}

	for _, t := range ix.Traits(entity) {
		if state[t.Name] != 0 {
			continue
		}
		if walk(t.Name) {
			errs = append(errs, &ValidationError{
				Scope:  "trait",
				Name:   string(t.Name),
				Reason: fmt.Sprintf("prerequisite chain on entity %q contains a cycle", entity),
			})
		}
	}
	return errs
}
