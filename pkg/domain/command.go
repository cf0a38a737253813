package domain

import "sort"

// Resolver performs the actual side effect of a command. It receives the
// fully merged argument map and returns named outputs that instructions copy
// entity values from. An error aborts the whole in-flight resolution and is
// surfaced to the caller verbatim.
type Resolver func(args map[string]any) (map[string]any, error)

// Instruction applies one resolver output to one entity binding.
type Instruction struct {
	// Entity is the logical entity the instruction targets.
	Entity EntityName
	// From is the resolver-output key the entity value is copied from.
	// Delete instructions leave it empty.
	From string
}

// Command is a named unit of domain logic: a parameter tree, a resolver, and
// the produce/update/delete effects applied to the Context afterwards.
//
// A command may touch a given entity with at most one instruction kind.
type Command struct {
	Name    CommandName
	Params  map[string]Param
	Produce []Instruction
	Update  []Instruction
	Delete  []Instruction
	Resolve Resolver
}

// RequiredEntities walks the parameter tree and collects every referenced
// entity together with any trait constraints declared on the reference.
// Entities referenced from several branches have their trait sets merged.
func (c *Command) RequiredEntities() map[EntityName][]TraitName {
	out := make(map[EntityName][]TraitName)
	collectEntityRefs(c.Params, out)
	return out
}

func collectEntityRefs(params map[string]Param, out map[EntityName][]TraitName) {
	for _, key := range sortedKeys(params) {
		switch p := params[key].(type) {
		case EntityParam:
			out[p.Entity] = mergeTraitNames(out[p.Entity], p.WithTraits)
		case ContainerParam:
			collectEntityRefs(p.Children, out)
		case ValueParam, GeneratorParam:
			// no entity references
		}
	}
}

// entityRefsByArg groups entity references by their top-level argument key.
// Nested references (inside containers) are keyed by the outermost name, so
// an explicit value for that argument satisfies everything beneath it.
func (c *Command) entityRefsByArg() map[string][]EntityParam {
	out := make(map[string][]EntityParam)
	for _, key := range sortedKeys(c.Params) {
		collectRefsUnder(key, c.Params[key], out)
	}
	return out
}

func collectRefsUnder(top string, p Param, out map[string][]EntityParam) {
	switch v := p.(type) {
	case EntityParam:
		out[top] = append(out[top], v)
	case ContainerParam:
		for _, key := range sortedKeys(v.Children) {
			collectRefsUnder(top, v.Children[key], out)
		}
	}
}

// MissingEntities is RequiredEntities minus references whose top-level
// argument key is already covered by explicit input: a caller that passes a
// value for a parameter has satisfied every entity reference beneath it.
func (c *Command) MissingEntities(input map[string]any) map[EntityName][]TraitName {
	out := make(map[EntityName][]TraitName)
	for top, refs := range c.entityRefsByArg() {
		if _, ok := input[top]; ok {
			continue
		}
		for _, ref := range refs {
			out[ref.Entity] = mergeTraitNames(out[ref.Entity], ref.WithTraits)
		}
	}
	return out
}

// Deletes reports whether the command deletes the given entity.
func (c *Command) Deletes(e EntityName) bool {
	for _, inst := range c.Delete {
		if inst.Entity == e {
			return true
		}
	}
	return false
}

// Touches returns every entity named by any instruction of the command.
func (c *Command) Touches() []EntityName {
	var out []EntityName
	seen := make(map[EntityName]bool)
	for _, group := range [][]Instruction{c.Produce, c.Update, c.Delete} {
		for _, inst := range group {
			if !seen[inst.Entity] {
				seen[inst.Entity] = true
				out = append(out, inst.Entity)
			}
		}
	}
	return out
}

func mergeTraitNames(base, extra []TraitName) []TraitName {
	for _, t := range extra {
		found := false
		for _, b := range base {
			if b == t {
				found = true
				break
			}
		}
		if !found {
			base = append(base, t)
		}
	}
	return base
}

func sortedKeys(m map[string]Param) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
