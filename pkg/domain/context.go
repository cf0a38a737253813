package domain

// Meta holds the resolution bookkeeping carried alongside the entity values.
type Meta struct {
	// Rebinding maps entity names to the binding they currently resolve to.
	// It affects name resolution only, never ownership of a value.
	Rebinding map[EntityName]BindingName

	// CurrentTraits is the live trait set per binding.
	CurrentTraits map[BindingName][]TraitName

	// Trails is the per-binding provenance history.
	Trails map[BindingName]*Trail

	// DependentCreation gates automatic creation of missing dependencies.
	// It is toggled off while the engine is already creating a dependency so
	// that seeding one missing parameter cannot fan out into further chains.
	DependentCreation bool
}

// Context is the working set of one fixture session: named entity values
// plus resolution metadata. All engine operations treat it as immutable and
// return a fresh value; entity values themselves are shared, not copied.
type Context struct {
	Entities map[BindingName]any
	Meta     Meta
}

// NewContext returns an empty context with dependent creation enabled.
func NewContext() *Context {
	return &Context{
		Entities: make(map[BindingName]any),
		Meta: Meta{
			Rebinding:         make(map[EntityName]BindingName),
			CurrentTraits:     make(map[BindingName][]TraitName),
			Trails:            make(map[BindingName]*Trail),
			DependentCreation: true,
		},
	}
}

// Clone returns a context whose maps are independent of the receiver.
// Entity values and trail entries are deep enough for the engine's
// replace-not-mutate discipline.
func (c *Context) Clone() *Context {
	out := &Context{
		Entities: make(map[BindingName]any, len(c.Entities)),
		Meta: Meta{
			Rebinding:         make(map[EntityName]BindingName, len(c.Meta.Rebinding)),
			CurrentTraits:     make(map[BindingName][]TraitName, len(c.Meta.CurrentTraits)),
			Trails:            make(map[BindingName]*Trail, len(c.Meta.Trails)),
			DependentCreation: c.Meta.DependentCreation,
		},
	}
	for k, v := range c.Entities {
		out.Entities[k] = v
	}
	for k, v := range c.Meta.Rebinding {
		out.Meta.Rebinding[k] = v
	}
	for k, v := range c.Meta.CurrentTraits {
		out.Meta.CurrentTraits[k] = append([]TraitName(nil), v...)
	}
	for k, v := range c.Meta.Trails {
		out.Meta.Trails[k] = v.Clone()
	}
	return out
}

// BindingFor resolves an entity name to its current binding, honoring any
// active rebinding.
func (c *Context) BindingFor(e EntityName) BindingName {
	if b, ok := c.Meta.Rebinding[e]; ok {
		return b
	}
	return e.Binding()
}

// Lookup returns the value stored for an entity under its current binding.
func (c *Context) Lookup(e EntityName) (any, bool) {
	v, ok := c.Entities[c.BindingFor(e)]
	return v, ok
}

// Bound reports whether the entity's current binding holds a value.
func (c *Context) Bound(e EntityName) bool {
	_, ok := c.Lookup(e)
	return ok
}

// HasTrait reports whether the binding currently carries the trait.
func (c *Context) HasTrait(b BindingName, t TraitName) bool {
	for _, have := range c.Meta.CurrentTraits[b] {
		if have == t {
			return true
		}
	}
	return false
}

// MissingTraits returns the subset of want the binding does not carry yet,
// in the order given.
func (c *Context) MissingTraits(b BindingName, want []TraitName) []TraitName {
	var missing []TraitName
	for _, t := range want {
		if !c.HasTrait(b, t) {
			missing = append(missing, t)
		}
	}
	return missing
}
