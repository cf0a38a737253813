package domain

import "reflect"

// ExecStep ties a trait to the single command whose execution confers it,
// plus a predicate over that command's resolved arguments.
//
// Either Args (a literal sub-pattern matched structurally against the merged
// argument map) or an explicit Match/Generate pair is used; when both are
// nil the command confers the trait regardless of arguments.
type ExecStep struct {
	Command CommandName

	// Args is a literal argument sub-pattern. A command execution matches
	// when every leaf of the pattern equals the corresponding resolved
	// argument. The same pattern doubles as the default arguments
	// synthesized when the engine schedules the command on the trait's
	// behalf.
	Args map[string]any

	// Match overrides Args as the acceptance predicate.
	Match func(args map[string]any) bool
	// Generate overrides Args as the default-argument source.
	Generate func() map[string]any
}

// Matches reports whether a command executed with args confers the trait.
func (s ExecStep) Matches(args map[string]any) bool {
	if s.Match != nil {
		return s.Match(args)
	}
	if s.Args == nil {
		return true
	}
	return patternSubset(s.Args, args)
}

// DefaultArgs returns the arguments the engine should synthesize when it
// schedules the step's command to gain the trait.
func (s ExecStep) DefaultArgs() map[string]any {
	if s.Generate != nil {
		return s.Generate()
	}
	return s.Args
}

// patternSubset reports whether every leaf of pattern appears, equal, in
// args. Nested maps recurse; everything else compares with DeepEqual.
func patternSubset(pattern, args map[string]any) bool {
	for key, want := range pattern {
		got, ok := args[key]
		if !ok {
			return false
		}
		wantMap, wantIsMap := want.(map[string]any)
		gotMap, gotIsMap := got.(map[string]any)
		if wantIsMap && gotIsMap {
			if !patternSubset(wantMap, gotMap) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(want, got) {
			return false
		}
	}
	return true
}

// Trait labels a state an entity reaches by going through a command.
type Trait struct {
	Name   TraitName
	Entity EntityName
	Exec   ExecStep

	// From lists prerequisite traits this one supersedes. When several are
	// listed they are alternatives: reaching this trait requires any one of
	// them, and gaining this trait removes whichever of them the entity
	// currently carries.
	From []TraitName
}
