package domain

// TrailEntry records one command execution that touched an entity, together
// with the traits the execution added and removed.
type TrailEntry struct {
	Command CommandName
	Added   []TraitName
	Removed []TraitName
}

// Trail is the append-only history of a binding: the command that produced
// the entity followed by every command that updated it, in order.
type Trail struct {
	ProducedBy TrailEntry
	UpdatedBy  []TrailEntry
}

// Entries returns the full history, production entry first.
func (t *Trail) Entries() []TrailEntry {
	out := make([]TrailEntry, 0, 1+len(t.UpdatedBy))
	out = append(out, t.ProducedBy)
	out = append(out, t.UpdatedBy...)
	return out
}

// EntryFor returns the first history entry recorded for the given command.
func (t *Trail) EntryFor(cmd CommandName) (TrailEntry, bool) {
	for _, e := range t.Entries() {
		if e.Command == cmd {
			return e, true
		}
	}
	return TrailEntry{}, false
}

// RemovedBy returns the command whose execution removed the given trait, if
// any entry records the removal.
func (t *Trail) RemovedBy(trait TraitName) (CommandName, bool) {
	for _, e := range t.Entries() {
		for _, r := range e.Removed {
			if r == trait {
				return e.Command, true
			}
		}
	}
	return "", false
}

// Clone returns a deep copy of the trail.
func (t *Trail) Clone() *Trail {
	if t == nil {
		return nil
	}
	out := &Trail{ProducedBy: t.ProducedBy.clone()}
	for _, e := range t.UpdatedBy {
		out.UpdatedBy = append(out.UpdatedBy, e.clone())
	}
	return out
}

func (e TrailEntry) clone() TrailEntry {
	return TrailEntry{
		Command: e.Command,
		Added:   append([]TraitName(nil), e.Added...),
		Removed: append([]TraitName(nil), e.Removed...),
	}
}
