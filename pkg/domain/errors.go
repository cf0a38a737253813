package domain

import (
	"fmt"
	"strings"
)

// UnknownEntityError reports a reference to an entity absent from the schema.
type UnknownEntityError struct {
	Name       EntityName
	Suggestion EntityName // closest valid name, empty when nothing is close
}

func (e *UnknownEntityError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown entity %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown entity %q", e.Name)
}

// UnknownCommandError reports a reference to a command absent from the schema.
type UnknownCommandError struct {
	Name       CommandName
	Suggestion CommandName
}

func (e *UnknownCommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %q", e.Name)
}

// UnknownTraitError reports a reference to a trait the entity does not declare.
type UnknownTraitError struct {
	Entity     EntityName
	Name       TraitName
	Suggestion TraitName
}

func (e *UnknownTraitError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("entity %q has no trait %q (did you mean %q?)", e.Entity, e.Name, e.Suggestion)
	}
	return fmt.Sprintf("entity %q has no trait %q", e.Entity, e.Name)
}

// EntityAlreadyExistsError reports a produce instruction targeting an
// occupied binding.
type EntityAlreadyExistsError struct {
	Entity  EntityName
	Binding BindingName
	Command CommandName
}

func (e *EntityAlreadyExistsError) Error() string {
	return fmt.Sprintf("command %q cannot produce entity %q: binding %q already holds a value", e.Command, e.Entity, e.Binding)
}

// EntityNotFoundError reports an update or delete instruction targeting an
// unoccupied binding.
type EntityNotFoundError struct {
	Entity  EntityName
	Binding BindingName
	Command CommandName
	Op      string // "update" or "delete"
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("command %q cannot %s entity %q: binding %q holds no value", e.Command, e.Op, e.Entity, e.Binding)
}

// UntrackedEntityError reports a binding that holds a value but has no trail.
// Entities must enter the context through commands, never by hand.
type UntrackedEntityError struct {
	Entity  EntityName
	Binding BindingName
}

func (e *UntrackedEntityError) Error() string {
	return fmt.Sprintf("entity %q (binding %q) has no trail; entities must be created through commands, not inserted by hand", e.Entity, e.Binding)
}

// UndeclaredArgError reports an explicit argument key the command's
// parameter tree does not declare.
type UndeclaredArgError struct {
	Command CommandName
	Key     string
}

func (e *UndeclaredArgError) Error() string {
	return fmt.Sprintf("command %q does not declare parameter %q", e.Command, e.Key)
}

// TraitRestrictionConflictError reports a dependency-driven trait
// requirement colliding with the caller's explicit request: satisfying the
// requirement would silently advance the entity past the requested state.
type TraitRestrictionConflictError struct {
	Entity     EntityName
	Trait      TraitName   // the trait the dependency wants to apply
	Requested  []TraitName // what the caller explicitly asked for
	RequiredBy CommandName // command whose requirement triggered this, empty for the request itself
}

func (e *TraitRestrictionConflictError) Error() string {
	msg := fmt.Sprintf("applying trait %q to entity %q would supersede the explicitly requested traits %v", e.Trait, e.Entity, e.Requested)
	if e.RequiredBy != "" {
		msg += fmt.Sprintf(" (required by command %q)", e.RequiredBy)
	}
	return msg
}

// TraitPathNotFoundError reports requested traits unreachable from the
// entity's current state with no trail evidence explaining why.
type TraitPathNotFoundError struct {
	Entity    EntityName
	Binding   BindingName
	Requested []TraitName
	Current   []TraitName
}

func (e *TraitPathNotFoundError) Error() string {
	return fmt.Sprintf("no path to traits %v for entity %q (binding %q, current traits %v)", e.Requested, e.Entity, e.Binding, e.Current)
}

// TraitRemovedByCommandError reports a requested trait already stripped by a
// prior command, cited by name.
type TraitRemovedByCommandError struct {
	Entity  EntityName
	Trait   TraitName
	Command CommandName
}

func (e *TraitRemovedByCommandError) Error() string {
	return fmt.Sprintf("trait %q on entity %q was already removed by command %q", e.Trait, e.Entity, e.Command)
}

// TraitMismatchError reports a trait whose command already ran on the entity
// with arguments that did not confer the trait; the command cannot run again
// with different arguments.
type TraitMismatchError struct {
	Entity  EntityName
	Trait   TraitName
	Command CommandName
}

func (e *TraitMismatchError) Error() string {
	return fmt.Sprintf("command %q already executed for entity %q with arguments that do not match trait %q", e.Command, e.Entity, e.Trait)
}

// CommandsRejectedError reports a requirement that resolves only to commands
// previously discarded during conflict resolution.
type CommandsRejectedError struct {
	Commands []CommandName
}

func (e *CommandsRejectedError) Error() string {
	return fmt.Sprintf("commands %v were rejected earlier in this resolution and cannot be required again", e.Commands)
}

// PrerequisiteUnsatisfiedError reports that none of a trait's prerequisite
// alternatives could be satisfied. Reasons holds one failure per alternative.
type PrerequisiteUnsatisfiedError struct {
	Trait   TraitName
	Reasons []error
}

func (e *PrerequisiteUnsatisfiedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no prerequisite of trait %q could be satisfied:", e.Trait)
	for _, r := range e.Reasons {
		writeNested(&sb, r, 1)
	}
	return sb.String()
}

func (e *PrerequisiteUnsatisfiedError) Unwrap() []error { return e.Reasons }

// AllTraitsFailedError aggregates the failures of every requested trait on
// one entity.
type AllTraitsFailedError struct {
	Entity  EntityName
	Reasons []error
}

func (e *AllTraitsFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "every requested trait on entity %q failed to resolve:", e.Entity)
	for _, r := range e.Reasons {
		writeNested(&sb, r, 1)
	}
	return sb.String()
}

func (e *AllTraitsFailedError) Unwrap() []error { return e.Reasons }

// TraitResolutionError is the top-level failure of a trait chain. Reason is
// a nested error value describing the whole unreachable path.
type TraitResolutionError struct {
	Entity    EntityName
	Binding   BindingName
	Requested []TraitName
	Reason    error
}

func (e *TraitResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cannot resolve traits %v for entity %q (binding %q):", e.Requested, e.Entity, e.Binding)
	writeNested(&sb, e.Reason, 1)
	return sb.String()
}

func (e *TraitResolutionError) Unwrap() error { return e.Reason }

// ConflictingTraitsError reports two requested traits that cannot coexist:
// either their argument patterns assign incompatible values to the same
// argument path of the same command (Path and Values set), or they demand
// producing the entity via mutually incompatible commands (Commands set).
type ConflictingTraitsError struct {
	Entity   EntityName
	Command  CommandName
	Traits   [2]TraitName
	Path     string
	Values   [2]any
	Commands [2]CommandName
}

func (e *ConflictingTraitsError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("traits %q and %q on entity %q require command %q with conflicting values at %q: %v vs %v",
			e.Traits[0], e.Traits[1], e.Entity, e.Command, e.Path, e.Values[0], e.Values[1])
	}
	return fmt.Sprintf("traits %q and %q on entity %q require producing it via mutually incompatible commands %q and %q",
		e.Traits[0], e.Traits[1], e.Entity, e.Commands[0], e.Commands[1])
}

// writeNested renders an error as an indented bullet, recursing into the
// nested kinds so the full causal chain reads as a tree.
func writeNested(sb *strings.Builder, err error, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := err.(type) {
	case *PrerequisiteUnsatisfiedError:
		fmt.Fprintf(sb, "\n%s- no prerequisite of trait %q could be satisfied:", indent, v.Trait)
		for _, r := range v.Reasons {
			writeNested(sb, r, depth+1)
		}
	case *AllTraitsFailedError:
		fmt.Fprintf(sb, "\n%s- every requested trait on entity %q failed:", indent, v.Entity)
		for _, r := range v.Reasons {
			writeNested(sb, r, depth+1)
		}
	default:
		fmt.Fprintf(sb, "\n%s- %s", indent, err.Error())
	}
}
