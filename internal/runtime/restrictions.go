package runtime

import (
	"sort"

	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// restrictions is derived once per top-level request. It records, per
// requested entity, which traits the caller explicitly asked for and which
// traits are downstream of the request, so automatic dependency resolution
// cannot silently fight the caller's intent. Scoped to one resolution call.
type restrictions struct {
	requested  map[domain.EntityName]map[domain.TraitName]bool
	subsequent map[domain.EntityName]map[domain.TraitName]bool

	// producers holds the candidate producer commands per requested entity,
	// narrowed to the commands the explicitly requested traits allow.
	producers map[domain.EntityName][]domain.CommandName
}

func emptyRestrictions() *restrictions {
	return &restrictions{
		requested:  make(map[domain.EntityName]map[domain.TraitName]bool),
		subsequent: make(map[domain.EntityName]map[domain.TraitName]bool),
		producers:  make(map[domain.EntityName][]domain.CommandName),
	}
}

// newRestrictions validates the request against the schema and the current
// context state before any resolution happens: unknown names fail here, and
// so do requests that are logically unreachable because the entity already
// advanced past the requested trait.
func newRestrictions(ix *schema.Index, ctx *domain.Context, reqs []domain.Request) (*restrictions, error) {
	r := emptyRestrictions()

	for _, req := range reqs {
		if err := ix.Entity(req.Entity); err != nil {
			return nil, err
		}
		if r.requested[req.Entity] == nil {
			r.requested[req.Entity] = make(map[domain.TraitName]bool)
			r.subsequent[req.Entity] = make(map[domain.TraitName]bool)
		}
		for _, tn := range req.Traits {
			if _, err := ix.Trait(req.Entity, tn); err != nil {
				return nil, err
			}
			r.requested[req.Entity][tn] = true
			for _, s := range ix.Subsequent(req.Entity, tn) {
				r.subsequent[req.Entity][s] = true
			}
		}
	}

	for _, req := range reqs {
		if err := r.checkReachable(ix, ctx, req); err != nil {
			return nil, err
		}
	}

	for _, req := range reqs {
		if _, done := r.producers[req.Entity]; done {
			continue
		}
		candidates, err := r.narrowProducers(ix, req.Entity)
		if err != nil {
			return nil, err
		}
		r.producers[req.Entity] = candidates
	}
	return r, nil
}

// checkReachable rejects a request whose entity already carries a trait
// downstream of a requested one: the requested state lies in the past. When
// the trail shows which command stripped the trait, that command is cited.
func (r *restrictions) checkReachable(ix *schema.Index, ctx *domain.Context, req domain.Request) error {
	binding := ctx.BindingFor(req.Entity)
	if _, bound := ctx.Entities[binding]; !bound {
		return nil
	}
	current := ctx.Meta.CurrentTraits[binding]

	for _, tn := range req.Traits {
		if ctx.HasTrait(binding, tn) {
			continue
		}
		advanced := false
		for _, s := range ix.Subsequent(req.Entity, tn) {
			if ctx.HasTrait(binding, s) {
				advanced = true
				break
			}
		}
		if !advanced {
			continue
		}
		if trail := ctx.Meta.Trails[binding]; trail != nil {
			if cmd, ok := trail.RemovedBy(tn); ok {
				return &domain.TraitRemovedByCommandError{Entity: req.Entity, Trait: tn, Command: cmd}
			}
		}
		return &domain.TraitPathNotFoundError{
			Entity:    req.Entity,
			Binding:   binding,
			Requested: req.Traits,
			Current:   append([]domain.TraitName(nil), current...),
		}
	}
	return nil
}

// narrowProducers filters an entity's producer list down to the commands
// consistent with the traits explicitly requested on it. Two requested
// traits demanding different producer commands cannot both hold.
func (r *restrictions) narrowProducers(ix *schema.Index, entity domain.EntityName) ([]domain.CommandName, error) {
	producers, err := ix.Producers(entity)
	if err != nil {
		return nil, err
	}
	narrowed := producers
	var narrowedBy domain.TraitName

	for _, tn := range r.requestedTraits(entity) {
		t, err := ix.Trait(entity, tn)
		if err != nil {
			return nil, err
		}
		if !containsName(producers, t.Exec.Command) {
			continue // trait applied post-production, no bearing on the producer
		}
		if containsName(narrowed, t.Exec.Command) {
			narrowed = []domain.CommandName{t.Exec.Command}
			narrowedBy = tn
			continue
		}
		return nil, &domain.ConflictingTraitsError{
			Entity:   entity,
			Traits:   [2]domain.TraitName{narrowedBy, tn},
			Commands: [2]domain.CommandName{narrowed[0], t.Exec.Command},
		}
	}
	return narrowed, nil
}

// candidatesFor returns the producer candidates for an entity: the narrowed
// set when the entity was explicitly requested, the full schema list
// otherwise.
func (r *restrictions) candidatesFor(ix *schema.Index, entity domain.EntityName) ([]domain.CommandName, error) {
	if candidates, ok := r.producers[entity]; ok {
		return candidates, nil
	}
	return ix.Producers(entity)
}

// checkTrait guards a trait about to be applied on behalf of a dependency:
// applying a trait downstream of what the caller explicitly requested would
// silently overrule the request.
func (r *restrictions) checkTrait(entity domain.EntityName, trait domain.TraitName, requiredBy domain.CommandName) error {
	if r.subsequent[entity][trait] && !r.requested[entity][trait] {
		return &domain.TraitRestrictionConflictError{
			Entity:     entity,
			Trait:      trait,
			Requested:  r.requestedTraits(entity),
			RequiredBy: requiredBy,
		}
	}
	return nil
}

func (r *restrictions) requestedTraits(entity domain.EntityName) []domain.TraitName {
	out := make([]domain.TraitName, 0, len(r.requested[entity]))
	for t := range r.requested[entity] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
