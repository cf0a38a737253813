/*
Package domain contains the core domain models for the Sower engine.

It defines the building blocks of fixture resolution: Commands with their
parameter trees and produce/update/delete instructions, Traits with their
exec steps and prerequisite chains, Trails recording per-entity history, and
the Context working set. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Command: A named unit of domain logic with declared parameters and effects.
  - Param: A node in a parameter tree (Value, Generator, Entity, or Container).
  - Trait: A label denoting that an entity reached a state via a command.
  - Trail: The ordered history of commands that produced and updated a binding.
  - Context: The working set of named entity values plus resolution metadata.
*/
package domain
