package runtime

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aretw0/sower/pkg/domain"
)

// resolveArgs merges a command's arguments bottom-up through its parameter
// tree: explicit input wins, generators are invoked lazily, entity
// parameters are read from the context (through the optional mapping
// function). Input keys the tree does not declare are rejected.
func (e *Engine) resolveArgs(ctx *domain.Context, cmd *domain.Command, input map[string]any) (map[string]any, error) {
	for key := range input {
		if _, ok := cmd.Params[key]; !ok {
			return nil, &domain.UndeclaredArgError{Command: cmd.Name, Key: key}
		}
	}
	return resolveParamMap(ctx, cmd, "", cmd.Params, input)
}

func resolveParamMap(ctx *domain.Context, cmd *domain.Command, prefix string, params map[string]domain.Param, input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		explicit, has := input[key]

		switch p := params[key].(type) {
		case domain.ValueParam:
			if has {
				out[key] = explicit
			} else {
				out[key] = p.Value
			}
		case domain.GeneratorParam:
			if has {
				out[key] = explicit
			} else {
				out[key] = p.Generate()
			}
		case domain.EntityParam:
			if has {
				out[key] = explicit
				continue
			}
			val, ok := ctx.Lookup(p.Entity)
			if !ok {
				return nil, &domain.EntityNotFoundError{
					Entity:  p.Entity,
					Binding: ctx.BindingFor(p.Entity),
					Command: cmd.Name,
					Op:      "read",
				}
			}
			if p.Map != nil {
				mapped, err := p.Map(val)
				if err != nil {
					return nil, fmt.Errorf("mapping entity %q for parameter %q of command %q: %w", p.Entity, path, cmd.Name, err)
				}
				val = mapped
			}
			out[key] = val
		case domain.ContainerParam:
			var sub map[string]any
			if has {
				m, ok := explicit.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("parameter %q of command %q expects a map, got %T", path, cmd.Name, explicit)
				}
				sub = m
			}
			for k := range sub {
				if _, ok := p.Children[k]; !ok {
					return nil, &domain.UndeclaredArgError{Command: cmd.Name, Key: path + "." + k}
				}
			}
			resolved, err := resolveParamMap(ctx, cmd, path, p.Children, sub)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
	}
	return out, nil
}

// mergeDemandArgs combines the argument patterns of every trait demand
// attached to a node into the default arguments the command runs with. Two
// demands assigning different values to the same argument path cannot be
// satisfied by one execution; that is detected here, before anything runs.
func mergeDemandArgs(name domain.CommandName, demands []traitDemand) (map[string]any, error) {
	merged := make(map[string]any)
	owners := make(map[string]domain.TraitName)
	for _, d := range demands {
		args := d.Step.DefaultArgs()
		if len(args) == 0 {
			continue
		}
		if err := mergePattern(merged, args, "", name, d, owners); err != nil {
			return nil, err
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}
	return merged, nil
}

func mergePattern(dst, src map[string]any, prefix string, cmd domain.CommandName, d traitDemand, owners map[string]domain.TraitName) error {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := src[key]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		existing, ok := dst[key]
		if !ok {
			// copied so later merges never mutate a trait's literal pattern
			dst[key] = copyPattern(val)
			recordOwner(val, path, d.Trait, owners)
			continue
		}
		em, eIsMap := existing.(map[string]any)
		vm, vIsMap := val.(map[string]any)
		if eIsMap && vIsMap {
			if err := mergePattern(em, vm, path, cmd, d, owners); err != nil {
				return err
			}
			continue
		}
		if !reflect.DeepEqual(existing, val) {
			return &domain.ConflictingTraitsError{
				Entity:  d.Entity,
				Command: cmd,
				Traits:  [2]domain.TraitName{owners[path], d.Trait},
				Path:    path,
				Values:  [2]any{existing, val},
			}
		}
	}
	return nil
}

// recordOwner remembers which trait first claimed each path of a freshly
// copied pattern, nested paths included, so a conflict detected at a nested
// leaf can cite both traits.
func recordOwner(v any, path string, trait domain.TraitName, owners map[string]domain.TraitName) {
	owners[path] = trait
	m, ok := v.(map[string]any)
	if !ok {
		return
	}
	for k, val := range m {
		recordOwner(val, path+"."+k, trait, owners)
	}
}

func copyPattern(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = copyPattern(val)
	}
	return out
}
