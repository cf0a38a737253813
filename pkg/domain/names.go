package domain

// EntityName identifies a logical entity kind in the schema (e.g. "user").
type EntityName string

// BindingName is the key an entity instance is stored under in a Context.
// It usually equals the EntityName, unless a rebinding is active.
type BindingName string

// CommandName identifies a registered command.
type CommandName string

// TraitName labels a state an entity reached via a particular command.
type TraitName string

// Binding converts an entity name to its default binding name.
func (e EntityName) Binding() BindingName { return BindingName(e) }
