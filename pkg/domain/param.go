package domain

// Param is a node in a command's parameter tree.
//
// This is a sealed interface - only the four variants in this package
// implement it. The marker method pattern prevents external implementations
// and keeps type switches over parameters exhaustive:
//
//   - ValueParam: a literal default value
//   - GeneratorParam: a lazily invoked default value factory
//   - EntityParam: a reference to an entity held in the Context
//   - ContainerParam: a nested map of parameters
type Param interface {
	param() // marker method, seals the interface
}

// ValueParam supplies a constant default value.
type ValueParam struct {
	Value any
}

func (ValueParam) param() {}

// GeneratorParam supplies a default value computed on demand. The generator
// runs only when no explicit input covers the parameter.
type GeneratorParam struct {
	Generate func() any
}

func (GeneratorParam) param() {}

// EntityParam reads an entity value out of the Context. If WithTraits is
// non-empty the referenced entity must carry those traits before the owning
// command runs; Map, when set, transforms the stored value into the argument
// actually handed to the resolver.
type EntityParam struct {
	Entity     EntityName
	WithTraits []TraitName
	Map        func(value any) (any, error)
}

func (EntityParam) param() {}

// ContainerParam groups nested parameters under one argument key.
type ContainerParam struct {
	Children map[string]Param
}

func (ContainerParam) param() {}
