package runtime

import (
	"fmt"
	"sort"

	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// collector populates the requirement graph for one resolution pass. It
// queries the context and the schema index, recursing into parameter and
// trait dependencies until every requirement either resolves against
// existing state or has a command node scheduled for it.
type collector struct {
	ix      *schema.Index
	ctx     *domain.Context
	g       *graph
	restr   *restrictions
	visited map[domain.CommandName]bool

	// maxDepth caps trait-chain recursion. Static validation guarantees the
	// schema is acyclic; this defends against an accidental runtime cycle
	// (e.g. a trait's prerequisite chain pointing back at itself).
	maxDepth int
}

func newCollector(ix *schema.Index, ctx *domain.Context, restr *restrictions, maxDepth int) *collector {
	return &collector{
		ix:       ix,
		ctx:      ctx,
		g:        newGraph(),
		restr:    restr,
		visited:  make(map[domain.CommandName]bool),
		maxDepth: maxDepth,
	}
}

// requireRequest handles one explicitly requested entity: a no-op when the
// context already satisfies it, trait-chain resolution when the entity
// exists but lacks traits, producer registration otherwise.
func (c *collector) requireRequest(req domain.Request) error {
	binding := c.ctx.BindingFor(req.Entity)

	if _, bound := c.ctx.Entities[binding]; bound {
		missing := c.ctx.MissingTraits(binding, req.Traits)
		if len(missing) == 0 {
			return nil
		}
		trail := c.ctx.Meta.Trails[binding]
		if trail == nil {
			return &domain.UntrackedEntityError{Entity: req.Entity, Binding: binding}
		}
		return c.resolveRequestedTraits(req, binding, missing, trail)
	}

	candidates, err := c.restr.candidatesFor(c.ix, req.Entity)
	if err != nil {
		return err
	}
	if err := c.registerProducers(req.Entity, candidates, rootRequirer); err != nil {
		return err
	}
	return c.resolveRequestedTraits(req, binding, req.Traits, nil)
}

// resolveRequestedTraits resolves the caller's trait list, aggregating the
// failures when every trait is unreachable so the error shows the whole
// picture.
func (c *collector) resolveRequestedTraits(req domain.Request, binding domain.BindingName, traits []domain.TraitName, trail *domain.Trail) error {
	var reasons []error
	for _, tn := range traits {
		if err := c.resolveTrait(req.Entity, binding, tn, trail, rootRequirer, 0); err != nil {
			reasons = append(reasons, err)
		}
	}
	switch {
	case len(reasons) == 0:
		return nil
	case len(reasons) == len(traits) && len(traits) > 1:
		return &domain.TraitResolutionError{
			Entity:    req.Entity,
			Binding:   binding,
			Requested: req.Traits,
			Reason:    &domain.AllTraitsFailedError{Entity: req.Entity, Reasons: reasons},
		}
	default:
		return &domain.TraitResolutionError{
			Entity:    req.Entity,
			Binding:   binding,
			Requested: req.Traits,
			Reason:    reasons[0],
		}
	}
}

// require satisfies a dependency discovered inside a command's parameter
// tree: the entity must exist (or get a producer scheduled) and carry the
// declared traits.
func (c *collector) require(entity domain.EntityName, traits []domain.TraitName, requiredBy domain.CommandName) error {
	if err := c.ix.Entity(entity); err != nil {
		return err
	}
	binding := c.ctx.BindingFor(entity)

	if _, bound := c.ctx.Entities[binding]; bound {
		missing := c.ctx.MissingTraits(binding, traits)
		if len(missing) == 0 {
			return nil
		}
		trail := c.ctx.Meta.Trails[binding]
		if trail == nil {
			return &domain.UntrackedEntityError{Entity: entity, Binding: binding}
		}
		for _, tn := range missing {
			if err := c.resolveTrait(entity, binding, tn, trail, requiredBy, 0); err != nil {
				return err
			}
		}
		return nil
	}

	candidates, err := c.restr.candidatesFor(c.ix, entity)
	if err != nil {
		return err
	}
	if err := c.registerProducers(entity, candidates, requiredBy); err != nil {
		return err
	}
	for _, tn := range traits {
		if err := c.resolveTrait(entity, binding, tn, nil, requiredBy, 0); err != nil {
			return err
		}
	}
	return nil
}

// registerProducers filters candidates that would clobber existing sibling
// entities, registers the survivors, and scans whatever was newly added.
func (c *collector) registerProducers(entity domain.EntityName, candidates []domain.CommandName, requiredBy domain.CommandName) error {
	filtered, err := c.withoutClobbering(entity, candidates)
	if err != nil {
		return err
	}
	added, err := c.g.registerCommands(filtered, requiredBy, nil)
	if err != nil {
		return err
	}
	return c.scanNew(added)
}

// withoutClobbering drops candidates whose side-effect productions would
// silently duplicate entities the context already holds. When no candidate
// survives, the blocking entity is reported.
func (c *collector) withoutClobbering(target domain.EntityName, candidates []domain.CommandName) ([]domain.CommandName, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("entity %q has no producer command", target)
	}
	var out []domain.CommandName
	var blocked error
	for _, name := range candidates {
		cmd, err := c.ix.Command(name)
		if err != nil {
			return nil, err
		}
		ok := true
		for _, inst := range cmd.Produce {
			if inst.Entity == target {
				continue
			}
			b := c.ctx.BindingFor(inst.Entity)
			if _, occupied := c.ctx.Entities[b]; occupied {
				ok = false
				blocked = &domain.EntityAlreadyExistsError{Entity: inst.Entity, Binding: b, Command: name}
				break
			}
		}
		if ok {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, blocked
	}
	return out, nil
}

// scanNew recursively scans freshly registered commands for their own
// requirements. A scan failure drops the node instead of failing the whole
// resolution when the node is a non-essential conflict-group alternative.
func (c *collector) scanNew(added []domain.CommandName) error {
	for _, name := range added {
		if err := c.scanCommand(name); err != nil {
			if c.droppable(name) {
				c.g.removeNode(name)
				continue
			}
			return err
		}
	}
	return nil
}

// scanCommand walks one command's parameter tree and requires every entity
// it references. Commands already visited in this pass, or already executed
// according to their production target's trail, are skipped.
func (c *collector) scanCommand(name domain.CommandName) error {
	if c.visited[name] {
		return nil
	}
	c.visited[name] = true

	cmd, err := c.ix.Command(name)
	if err != nil {
		return err
	}
	if c.alreadyExecuted(cmd) {
		return nil
	}

	needs := cmd.RequiredEntities()
	entities := make([]domain.EntityName, 0, len(needs))
	for e := range needs {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	for _, entity := range entities {
		if err := c.require(entity, needs[entity], name); err != nil {
			return err
		}
	}
	return nil
}

// alreadyExecuted reports whether the command demonstrably ran before: one
// of its production targets exists and its trail names this exact command as
// the producer.
func (c *collector) alreadyExecuted(cmd *domain.Command) bool {
	for _, inst := range cmd.Produce {
		b := c.ctx.BindingFor(inst.Entity)
		if trail := c.ctx.Meta.Trails[b]; trail != nil && trail.ProducedBy.Command == cmd.Name {
			return true
		}
	}
	return false
}

// droppable reports whether a failed node may be absorbed locally: it must
// not be explicitly requested, and one of its conflict groups must keep an
// alternative path alive.
func (c *collector) droppable(name domain.CommandName) bool {
	n, ok := c.g.nodes[name]
	if !ok {
		return true // already removed by cascade
	}
	if n.rootRequired() {
		return false
	}
	for _, cg := range n.groups {
		for _, m := range cg.members {
			if m == name {
				continue
			}
			if _, live := c.g.nodes[m]; live {
				return true
			}
		}
	}
	return false
}
