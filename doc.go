/*
Package sower is a runtime fixture-resolution engine for building test data
on demand.

Applications describe their domain as commands (opaque resolvers with
declared parameter trees and produce/update/delete effects) and traits
(labels for states an entity reaches via a command). Given a request for one
or more entities, optionally qualified by traits, the engine determines the
minimal correctly-ordered set of commands required to satisfy the request,
taking into account what already exists in the working context, which
commands are mutually exclusive alternatives for the same entity, and
whether existing entities already carry the requested traits or must be
advanced through a trait chain.

# Concept

Sower separates the schema (what commands exist and what they do to which
entities) from the working context (what has been created so far) and from
the side effects themselves (application resolvers). The engine only
orchestrates: it builds a requirement graph, resolves conflicts between
alternative producers, schedules destructive commands after everything that
still needs the prior state, and executes the result. Every operation takes
a context value and returns a new one, so sequencing is simply program
order; there is no shared mutable state and no concurrency.

# Usage

	ix, err := schema.New(commands, traits)
	if err != nil {
		log.Fatal(err)
	}
	eng := sower.New(ix)

	ctx := eng.Init()
	ctx, err = eng.Produce(ctx, sower.Want("user", "active"))
	if err != nil {
		log.Fatal(err)
	}
	user, _ := ctx.Lookup("user")

Requesting "user" with the "active" trait runs whatever chain the schema
implies (say create_org, create_office, create_user, activate_user) and
nothing that already exists. Calling Produce again with the same request
executes nothing.

# Errors

Failures are typed values carrying the entity, binding, command, and trait
context needed to reconstruct a diagnostic: unknown names come back with
did-you-mean suggestions, and unreachable trait chains render the full
nested prerequisite path. All errors abort the in-flight resolution; the
context value passed in is never half-modified.
*/
package sower
