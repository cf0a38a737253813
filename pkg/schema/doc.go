// Package schema builds and serves the immutable command/trait index the
// engine resolves against.
//
// Applications describe their fixtures as commands (parameter trees plus
// produce/update/delete instructions) and traits (states conferred by a
// command under an argument pattern). New derives everything the runtime
// needs from that description: producer commands per entity in declaration
// order, trait tables indexed by name and by command, and the inverse of the
// trait prerequisite relation used to detect requests that would fight each
// other.
//
// Basic usage:
//
//	ix, err := schema.New(
//	    []*domain.Command{createOrg, createUser, activateUser},
//	    []*domain.Trait{pending, active},
//	)
//	if err != nil {
//	    // duplicate names, double instructions
//	}
//
// Lookups are dynamic-validation points: an unknown entity, command, or
// trait yields a typed error carrying a did-you-mean suggestion computed by
// edit distance over the valid candidate set. Validate performs the static
// authoring checks on top of that: every referenced name must be declared,
// trait exec commands must actually touch their entity, and the trait
// prerequisite relation must be acyclic. Authoring mistakes come back as an
// AggregateError of per-finding ValidationError values.
package schema
