package schema

import (
	"fmt"
	"sort"

	"github.com/aretw0/sower/pkg/domain"
)

// Index is the immutable per-run view of an application's schema: every
// command, the producer commands per entity in declaration order, and the
// trait tables indexed by name and by command.
//
// The index trusts its input structurally (static authoring checks happen
// upstream); it only performs the dynamic lookups the engine needs at call
// time, with did-you-mean suggestions for user-facing error quality.
type Index struct {
	commands     map[domain.CommandName]*domain.Command
	commandOrder []domain.CommandName

	entities  map[domain.EntityName]struct{}
	producers map[domain.EntityName][]domain.CommandName

	traitsByName    map[domain.EntityName]map[domain.TraitName]*domain.Trait
	traitsByCommand map[domain.EntityName]map[domain.CommandName][]*domain.Trait

	// supersededBy is the computed inverse of Trait.From: for each trait,
	// the traits that directly supersede it.
	supersededBy map[domain.EntityName]map[domain.TraitName][]domain.TraitName
}

// New builds an index from commands (in declaration order) and traits.
// It derives the producer lists, the trait tables, and the inverse of the
// trait prerequisite relation.
func New(commands []*domain.Command, traits []*domain.Trait) (*Index, error) {
	ix := &Index{
		commands:        make(map[domain.CommandName]*domain.Command),
		entities:        make(map[domain.EntityName]struct{}),
		producers:       make(map[domain.EntityName][]domain.CommandName),
		traitsByName:    make(map[domain.EntityName]map[domain.TraitName]*domain.Trait),
		traitsByCommand: make(map[domain.EntityName]map[domain.CommandName][]*domain.Trait),
		supersededBy:    make(map[domain.EntityName]map[domain.TraitName][]domain.TraitName),
	}

	for _, cmd := range commands {
		if _, dup := ix.commands[cmd.Name]; dup {
			return nil, fmt.Errorf("command %q registered twice", cmd.Name)
		}
		ix.commands[cmd.Name] = cmd
		ix.commandOrder = append(ix.commandOrder, cmd.Name)

		touched := make(map[domain.EntityName]int)
		for _, group := range [][]domain.Instruction{cmd.Produce, cmd.Update, cmd.Delete} {
			for _, inst := range group {
				touched[inst.Entity]++
				ix.entities[inst.Entity] = struct{}{}
			}
		}
		for entity, n := range touched {
			if n > 1 {
				return nil, fmt.Errorf("command %q touches entity %q with more than one instruction", cmd.Name, entity)
			}
		}
		for _, inst := range cmd.Produce {
			ix.producers[inst.Entity] = append(ix.producers[inst.Entity], cmd.Name)
		}
		for entity := range cmd.RequiredEntities() {
			ix.entities[entity] = struct{}{}
		}
	}

	for _, t := range traits {
		ix.entities[t.Entity] = struct{}{}
		byName := ix.traitsByName[t.Entity]
		if byName == nil {
			byName = make(map[domain.TraitName]*domain.Trait)
			ix.traitsByName[t.Entity] = byName
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("trait %q on entity %q registered twice", t.Name, t.Entity)
		}
		byName[t.Name] = t

		byCmd := ix.traitsByCommand[t.Entity]
		if byCmd == nil {
			byCmd = make(map[domain.CommandName][]*domain.Trait)
			ix.traitsByCommand[t.Entity] = byCmd
		}
		byCmd[t.Exec.Command] = append(byCmd[t.Exec.Command], t)
	}

	for _, t := range traits {
		inv := ix.supersededBy[t.Entity]
		if inv == nil {
			inv = make(map[domain.TraitName][]domain.TraitName)
			ix.supersededBy[t.Entity] = inv
		}
		for _, from := range t.From {
			inv[from] = append(inv[from], t.Name)
		}
	}

	return ix, nil
}

// Command looks up a command by name.
func (ix *Index) Command(name domain.CommandName) (*domain.Command, error) {
	if cmd, ok := ix.commands[name]; ok {
		return cmd, nil
	}
	return nil, &domain.UnknownCommandError{
		Name:       name,
		Suggestion: domain.CommandName(closest(string(name), ix.commandNames())),
	}
}

// Entity verifies an entity name is known to the schema.
func (ix *Index) Entity(name domain.EntityName) error {
	if _, ok := ix.entities[name]; ok {
		return nil
	}
	return &domain.UnknownEntityError{
		Name:       name,
		Suggestion: domain.EntityName(closest(string(name), ix.entityNames())),
	}
}

// Producers returns the commands allowed to produce the entity, in command
// declaration order.
func (ix *Index) Producers(e domain.EntityName) ([]domain.CommandName, error) {
	if err := ix.Entity(e); err != nil {
		return nil, err
	}
	return ix.producers[e], nil
}

// Trait looks up a trait on an entity by name.
func (ix *Index) Trait(e domain.EntityName, name domain.TraitName) (*domain.Trait, error) {
	if err := ix.Entity(e); err != nil {
		return nil, err
	}
	if t, ok := ix.traitsByName[e][name]; ok {
		return t, nil
	}
	var candidates []string
	for n := range ix.traitsByName[e] {
		candidates = append(candidates, string(n))
	}
	return nil, &domain.UnknownTraitError{
		Entity:     e,
		Name:       name,
		Suggestion: domain.TraitName(closest(string(name), candidates)),
	}
}

// TraitsByCommand returns the traits an execution of cmd can confer on the
// entity.
func (ix *Index) TraitsByCommand(e domain.EntityName, cmd domain.CommandName) []*domain.Trait {
	return ix.traitsByCommand[e][cmd]
}

// Subsequent computes the transitive set of traits that supersede the given
// trait: everything reachable forward through the inverse prerequisite
// relation. Requesting a trait forbids silently advancing the entity into
// any of these.
func (ix *Index) Subsequent(e domain.EntityName, t domain.TraitName) []domain.TraitName {
	seen := make(map[domain.TraitName]bool)
	var out []domain.TraitName
	var walk func(domain.TraitName)
	walk = func(cur domain.TraitName) {
		for _, next := range ix.supersededBy[e][cur] {
			if !seen[next] {
				seen[next] = true
				out = append(out, next)
				walk(next)
			}
		}
	}
	walk(t)
	return out
}

// Entities returns every entity known to the schema, sorted by name.
func (ix *Index) Entities() []domain.EntityName {
	out := make([]domain.EntityName, 0, len(ix.entities))
	for e := range ix.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Commands returns every command in declaration order.
func (ix *Index) Commands() []*domain.Command {
	out := make([]*domain.Command, 0, len(ix.commandOrder))
	for _, name := range ix.commandOrder {
		out = append(out, ix.commands[name])
	}
	return out
}

// Traits returns the traits declared for an entity, sorted by name.
func (ix *Index) Traits(e domain.EntityName) []*domain.Trait {
	var out []*domain.Trait
	for _, t := range ix.traitsByName[e] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (ix *Index) commandNames() []string {
	out := make([]string, 0, len(ix.commandOrder))
	for _, n := range ix.commandOrder {
		out = append(out, string(n))
	}
	return out
}

func (ix *Index) entityNames() []string {
	out := make([]string, 0, len(ix.entities))
	for e := range ix.entities {
		out = append(out, string(e))
	}
	sort.Strings(out)
	return out
}
