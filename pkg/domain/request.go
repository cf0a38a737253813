package domain

// Request asks the engine for one entity, optionally qualified by traits the
// entity must carry and the binding it should be stored under.
type Request struct {
	Entity EntityName
	Traits []TraitName
	// As stores the produced entity under a different binding for this
	// request, leaving the ambient rebinding table untouched.
	As BindingName
}

// Want is shorthand for a request with trait constraints.
func Want(entity EntityName, traits ...TraitName) Request {
	return Request{Entity: entity, Traits: traits}
}
