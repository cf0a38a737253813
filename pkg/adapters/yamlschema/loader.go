// Package yamlschema loads a schema shape (commands, parameter trees,
// instructions, traits) from a YAML document.
//
// Resolvers are application code and cannot be expressed in YAML; loaded
// commands get an echo resolver that reflects its arguments back as every
// declared output. That is enough for validation, planning, and graph
// rendering, which is what this adapter exists for.
package yamlschema

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// Document is the top-level YAML shape.
type Document struct {
	Commands []CommandDef `mapstructure:"commands"`
	Traits   []TraitDef   `mapstructure:"traits"`
}

// CommandDef describes one command.
type CommandDef struct {
	Name    string              `mapstructure:"name"`
	Params  map[string]ParamDef `mapstructure:"params"`
	Produce []InstructionDef    `mapstructure:"produce"`
	Update  []InstructionDef    `mapstructure:"update"`
	Delete  []InstructionDef    `mapstructure:"delete"`
}

// ParamDef describes one parameter-tree node. Exactly one of Value,
// Generator, Entity, or Children should be set.
type ParamDef struct {
	Value      any                 `mapstructure:"value"`
	Generator  string              `mapstructure:"generator"` // "uuid" is the only built-in
	Entity     string              `mapstructure:"entity"`
	WithTraits []string            `mapstructure:"with_traits"`
	Children   map[string]ParamDef `mapstructure:"children"`
}

// InstructionDef describes one produce/update/delete effect.
type InstructionDef struct {
	Entity string `mapstructure:"entity"`
	From   string `mapstructure:"from"`
}

// TraitDef describes one trait.
type TraitDef struct {
	Name   string      `mapstructure:"name"`
	Entity string      `mapstructure:"entity"`
	From   []string    `mapstructure:"from"`
	Exec   ExecStepDef `mapstructure:"exec"`
}

// ExecStepDef ties a trait to its command and argument pattern.
type ExecStepDef struct {
	Command string         `mapstructure:"command"`
	Args    map[string]any `mapstructure:"args"`
}

// LoadFile reads a YAML schema document and builds an index from it.
func LoadFile(path string) (*schema.Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return Load(raw)
}

// Load builds an index from YAML bytes.
func Load(raw []byte) (*schema.Index, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parsing schema yaml: %w", err)
	}

	var doc Document
	if err := mapstructure.Decode(tree, &doc); err != nil {
		return nil, fmt.Errorf("decoding schema document: %w", err)
	}

	commands := make([]*domain.Command, 0, len(doc.Commands))
	for _, def := range doc.Commands {
		cmd, err := def.toDomain()
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	traits := make([]*domain.Trait, 0, len(doc.Traits))
	for _, def := range doc.Traits {
		traits = append(traits, def.toDomain())
	}
	return schema.New(commands, traits)
}

func (def CommandDef) toDomain() (*domain.Command, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("command without a name")
	}
	params := make(map[string]domain.Param, len(def.Params))
	for key, p := range def.Params {
		param, err := p.toDomain(def.Name, key)
		if err != nil {
			return nil, err
		}
		params[key] = param
	}
	cmd := &domain.Command{
		Name:    domain.CommandName(def.Name),
		Params:  params,
		Produce: toInstructions(def.Produce),
		Update:  toInstructions(def.Update),
		Delete:  toInstructions(def.Delete),
	}
	cmd.Resolve = echoResolver(cmd)
	return cmd, nil
}

func (p ParamDef) toDomain(cmd, key string) (domain.Param, error) {
	switch {
	case p.Entity != "":
		traits := make([]domain.TraitName, 0, len(p.WithTraits))
		for _, t := range p.WithTraits {
			traits = append(traits, domain.TraitName(t))
		}
		return domain.EntityParam{Entity: domain.EntityName(p.Entity), WithTraits: traits}, nil
	case len(p.Children) > 0:
		children := make(map[string]domain.Param, len(p.Children))
		for k, c := range p.Children {
			child, err := c.toDomain(cmd, key+"."+k)
			if err != nil {
				return nil, err
			}
			children[k] = child
		}
		return domain.ContainerParam{Children: children}, nil
	case p.Generator != "":
		if p.Generator != "uuid" {
			return nil, fmt.Errorf("command %q parameter %q: unsupported generator %q", cmd, key, p.Generator)
		}
		return domain.GeneratorParam{Generate: func() any { return uuid.NewString() }}, nil
	default:
		return domain.ValueParam{Value: p.Value}, nil
	}
}

func (def TraitDef) toDomain() *domain.Trait {
	from := make([]domain.TraitName, 0, len(def.From))
	for _, f := range def.From {
		from = append(from, domain.TraitName(f))
	}
	return &domain.Trait{
		Name:   domain.TraitName(def.Name),
		Entity: domain.EntityName(def.Entity),
		From:   from,
		Exec: domain.ExecStep{
			Command: domain.CommandName(def.Exec.Command),
			Args:    def.Exec.Args,
		},
	}
}

func toInstructions(defs []InstructionDef) []domain.Instruction {
	out := make([]domain.Instruction, 0, len(defs))
	for _, d := range defs {
		out = append(out, domain.Instruction{Entity: domain.EntityName(d.Entity), From: d.From})
	}
	return out
}

// echoResolver reflects the merged arguments back under every output key
// the command's instructions read from. Enough for dry runs; real resolvers
// come from application code.
func echoResolver(cmd *domain.Command) domain.Resolver {
	return func(args map[string]any) (map[string]any, error) {
		out := make(map[string]any)
		for _, group := range [][]domain.Instruction{cmd.Produce, cmd.Update} {
			for _, inst := range group {
				if inst.From != "" {
					out[inst.From] = args
				}
			}
		}
		return out, nil
	}
}
