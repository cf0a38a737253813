package runtime

import (
	"fmt"
	"sort"

	"github.com/aretw0/sower/pkg/domain"
)

// schemaIndex is the slice of the schema index the graph needs for the
// destructive-command pass. Satisfied by *schema.Index.
type schemaIndex interface {
	Command(domain.CommandName) (*domain.Command, error)
	TraitsByCommand(domain.EntityName, domain.CommandName) []*domain.Trait
}

// rootRequirer keys requirements coming straight from the caller's request.
// Nodes required by the root are explicit intent and are never auto-removed
// during conflict resolution.
const rootRequirer = domain.CommandName("")

// traitDemand records why a requirer linked a node: the trait it wants and
// the exec step carrying the argument pattern the executor later merges into
// default arguments.
type traitDemand struct {
	Entity domain.EntityName
	Trait  domain.TraitName
	Step   domain.ExecStep
}

// conflictGroup is a set of mutually exclusive candidate commands competing
// to satisfy the same requirement. Once resolved, every member except the
// winner is rejected.
type conflictGroup struct {
	members  []domain.CommandName
	resolved bool
	winner   domain.CommandName
}

func (cg *conflictGroup) has(name domain.CommandName) bool {
	for _, m := range cg.members {
		if m == name {
			return true
		}
	}
	return false
}

// node is one command pending execution.
type node struct {
	name       domain.CommandName
	requiredBy map[domain.CommandName][]traitDemand
	requires   map[domain.CommandName]struct{}
	groups     []*conflictGroup
	seq        int
}

func (n *node) rootRequired() bool {
	_, ok := n.requiredBy[rootRequirer]
	return ok
}

func (n *node) inGroup(cg *conflictGroup) bool {
	for _, g := range n.groups {
		if g == cg {
			return true
		}
	}
	return false
}

// graph is the mutable resolution graph for one request. It is the only
// mutation point of the per-request state; a graph value never outlives the
// resolution call that built it.
type graph struct {
	nodes    map[domain.CommandName]*node
	groups   []*conflictGroup
	rejected map[domain.CommandName]bool
	seq      int
}

func newGraph() *graph {
	return &graph{
		nodes:    make(map[domain.CommandName]*node),
		rejected: make(map[domain.CommandName]bool),
	}
}

// registerCommands adds candidate producers for one requirement. A single
// candidate is added or linked unconditionally. Multiple candidates are
// genuine alternatives and go through conflict-group bookkeeping: an
// existing unresolved group over the same ground is reused or narrowed so
// two call sites requiring the same ambiguous entity cannot create
// inconsistent alternatives.
//
// Returns the names of nodes newly inserted (callers scan those for further
// requirements).
func (g *graph) registerCommands(candidates []domain.CommandName, requiredBy domain.CommandName, demand *traitDemand) ([]domain.CommandName, error) {
	var live []domain.CommandName
	for _, c := range candidates {
		if !g.rejected[c] {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return nil, &domain.CommandsRejectedError{Commands: candidates}
	}

	if len(live) == 1 {
		if g.addOrLink(live[0], requiredBy, demand, nil) {
			return []domain.CommandName{live[0]}, nil
		}
		return nil, nil
	}

	group := g.matchGroup(live)
	g.settleAgainstGraphed(group)
	var added []domain.CommandName
	for _, c := range live {
		if !group.has(c) {
			// requirement narrowed by a pre-existing group; the extra
			// candidate is not a legal alternative anymore
			continue
		}
		if g.addOrLink(c, requiredBy, demand, group) {
			added = append(added, c)
		}
	}
	return added, nil
}

// matchGroup finds an unresolved group compatible with the candidate set.
// An equal or narrower group is reused as-is; a wider one is narrowed to the
// intersection (dropping its now-impossible members). Otherwise a fresh
// group is created.
func (g *graph) matchGroup(candidates []domain.CommandName) *conflictGroup {
	for _, cg := range g.groups {
		if cg.resolved {
			continue
		}
		inter := intersect(cg.members, candidates)
		if len(inter) == 0 {
			continue
		}
		if len(inter) == len(cg.members) {
			return cg // equal or subset of candidates: already narrow enough
		}
		// narrow the existing group to the intersection
		var dropped []domain.CommandName
		for _, m := range cg.members {
			if !containsName(inter, m) {
				dropped = append(dropped, m)
			}
		}
		cg.members = inter
		for _, m := range dropped {
			g.removeNode(m)
		}
		return cg
	}
	cg := &conflictGroup{members: append([]domain.CommandName(nil), candidates...)}
	g.groups = append(g.groups, cg)
	return cg
}

// addOrLink inserts a node or links an additional requirement to an existing
// one. Reports whether the node was newly inserted.
//
// A freshly inserted node carrying a conflict group resolves the group in
// its own favor immediately when nothing above it is itself conflicted:
// deterministic first-caller-wins semantics instead of deferred resolution.
func (g *graph) addOrLink(name, requiredBy domain.CommandName, demand *traitDemand, group *conflictGroup) bool {
	if group != nil && group.resolved && name != group.winner {
		g.rejected[name] = true
		return false
	}

	n, exists := g.nodes[name]
	inserted := false
	if !exists {
		n = &node{
			name:       name,
			requiredBy: make(map[domain.CommandName][]traitDemand),
			requires:   make(map[domain.CommandName]struct{}),
			seq:        g.seq,
		}
		g.seq++
		g.nodes[name] = n
		inserted = true
	}
	if group != nil && !n.inGroup(group) {
		n.groups = append(n.groups, group)
	}

	if demand != nil {
		n.requiredBy[requiredBy] = append(n.requiredBy[requiredBy], *demand)
	} else if _, ok := n.requiredBy[requiredBy]; !ok {
		n.requiredBy[requiredBy] = nil
	}
	if requiredBy != rootRequirer {
		if req, ok := g.nodes[requiredBy]; ok {
			req.requires[name] = struct{}{}
		}
	}

	if inserted && group != nil && !group.resolved && !g.requirerConflicted(n, map[domain.CommandName]bool{}) {
		g.resolveGroup(group, name)
	}
	return inserted
}

// requirerConflicted reports whether anything above the node, transitively
// through requiredBy, still belongs to an unresolved conflict group.
func (g *graph) requirerConflicted(n *node, visited map[domain.CommandName]bool) bool {
	if visited[n.name] {
		return false
	}
	visited[n.name] = true
	for req := range n.requiredBy {
		if req == rootRequirer {
			continue
		}
		up, ok := g.nodes[req]
		if !ok {
			continue
		}
		for _, cg := range up.groups {
			if !cg.resolved {
				return true
			}
		}
		if g.requirerConflicted(up, visited) {
			return true
		}
	}
	return false
}

// settleAgainstGraphed resolves a group in favor of a member that already
// has a node in the graph, preferring a root-required one. An alternative
// never displaces work that is already scheduled: the requirement is
// satisfiable by the existing node at no extra cost.
func (g *graph) settleAgainstGraphed(cg *conflictGroup) {
	if cg.resolved {
		return
	}
	var winner domain.CommandName
	for _, m := range cg.members {
		n, ok := g.nodes[m]
		if !ok {
			continue
		}
		if n.rootRequired() {
			winner = m
			break
		}
		if winner == "" {
			winner = m
		}
	}
	if winner != "" {
		g.resolveGroup(cg, winner)
	}
}

// resolveGroup settles a group in the winner's favor and removes the losing
// members, cascading to anything whose only reason for existing disappears.
func (g *graph) resolveGroup(cg *conflictGroup, winner domain.CommandName) {
	cg.resolved = true
	cg.winner = winner
	for _, m := range cg.members {
		if m == winner {
			continue
		}
		g.removeNode(m)
	}
}

// removeNode drops a node and records its name in the rejection list so
// later lookups short-circuit instead of silently re-adding a dead
// alternative. Nodes left without any requirer are removed in cascade.
// Root-required nodes are explicit caller intent and are never removed.
func (g *graph) removeNode(name domain.CommandName) {
	if n, ok := g.nodes[name]; ok && n.rootRequired() {
		return
	}
	g.rejected[name] = true
	if _, ok := g.nodes[name]; !ok {
		return
	}
	delete(g.nodes, name)

	var orphaned []domain.CommandName
	for _, other := range g.nodes {
		delete(other.requires, name)
		if _, ok := other.requiredBy[name]; ok {
			delete(other.requiredBy, name)
			if len(other.requiredBy) == 0 {
				orphaned = append(orphaned, other.name)
			}
		}
	}
	for _, o := range orphaned {
		if _, still := g.nodes[o]; still {
			g.removeNode(o)
		}
	}
}

// resolveConflicts settles every group still unresolved after collection:
// a root-required member wins outright, otherwise the first member still
// present, and all others are removed.
func (g *graph) resolveConflicts() {
	for _, cg := range g.groups {
		if cg.resolved {
			continue
		}
		g.settleAgainstGraphed(cg)
		if !cg.resolved {
			cg.resolved = true // every member already removed
		}
	}
}

// deprioritizeDestructive adds synthetic requires edges so that a command
// deleting an entity or stripping a trait runs strictly after every other
// node that still required the pre-destruction state. Edges that would close
// a cycle are skipped; the real dependency already orders those two.
func (g *graph) deprioritizeDestructive(ix schemaIndex) {
	for _, n := range g.nodesBySeq() {
		cmd, err := ix.Command(n.name)
		if err != nil {
			continue
		}
		deleted := make(map[domain.EntityName]bool)
		for _, inst := range cmd.Delete {
			deleted[inst.Entity] = true
		}
		stripped := make(map[domain.EntityName]map[domain.TraitName]bool)
		for _, entity := range cmd.Touches() {
			for _, t := range ix.TraitsByCommand(entity, cmd.Name) {
				for _, from := range t.From {
					if stripped[entity] == nil {
						stripped[entity] = make(map[domain.TraitName]bool)
					}
					stripped[entity][from] = true
				}
			}
		}
		if len(deleted) == 0 && len(stripped) == 0 {
			continue
		}

		for _, m := range g.nodesBySeq() {
			if m.name == n.name {
				continue
			}
			mcmd, err := ix.Command(m.name)
			if err != nil {
				continue
			}
			if !consumesPriorState(mcmd, deleted, stripped) {
				continue
			}
			if g.dependsOn(m.name, n.name) {
				continue
			}
			n.requires[m.name] = struct{}{}
		}
	}
}

// consumesPriorState reports whether cmd required an entity slated for
// deletion, or an entity trait slated for removal.
func consumesPriorState(cmd *domain.Command, deleted map[domain.EntityName]bool, stripped map[domain.EntityName]map[domain.TraitName]bool) bool {
	for entity, traits := range cmd.RequiredEntities() {
		if deleted[entity] {
			return true
		}
		for _, t := range traits {
			if stripped[entity][t] {
				return true
			}
		}
	}
	return false
}

// dependsOn reports whether from transitively requires to.
func (g *graph) dependsOn(from, to domain.CommandName) bool {
	visited := make(map[domain.CommandName]bool)
	var walk func(domain.CommandName) bool
	walk = func(cur domain.CommandName) bool {
		if cur == to {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		n, ok := g.nodes[cur]
		if !ok {
			return false
		}
		for req := range n.requires {
			if walk(req) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// sorted returns one valid execution order: every node after everything it
// requires, ties broken by insertion order for determinism.
func (g *graph) sorted() ([]domain.CommandName, error) {
	pending := g.nodesBySeq()
	emitted := make(map[domain.CommandName]bool)
	var order []domain.CommandName

	for len(order) < len(pending) {
		progress := false
		for _, n := range pending {
			if emitted[n.name] {
				continue
			}
			ready := true
			for req := range n.requires {
				if _, live := g.nodes[req]; live && !emitted[req] {
					ready = false
					break
				}
			}
			if ready {
				emitted[n.name] = true
				order = append(order, n.name)
				progress = true
			}
		}
		if !progress {
			return nil, fmt.Errorf("requirement graph contains a cycle among %d remaining commands", len(pending)-len(order))
		}
	}
	return order, nil
}

// demands returns every trait demand attached to the node, in a stable
// order (requirer name, then attachment order).
func (n *node) demands() []traitDemand {
	requirers := make([]domain.CommandName, 0, len(n.requiredBy))
	for r := range n.requiredBy {
		requirers = append(requirers, r)
	}
	sort.Slice(requirers, func(i, j int) bool { return requirers[i] < requirers[j] })

	var out []traitDemand
	for _, r := range requirers {
		out = append(out, n.requiredBy[r]...)
	}
	return out
}

func (g *graph) nodesBySeq() []*node {
	out := make([]*node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func intersect(a, b []domain.CommandName) []domain.CommandName {
	var out []domain.CommandName
	for _, x := range a {
		if containsName(b, x) {
			out = append(out, x)
		}
	}
	return out
}

func containsName(list []domain.CommandName, name domain.CommandName) bool {
	for _, x := range list {
		if x == name {
			return true
		}
	}
	return false
}
