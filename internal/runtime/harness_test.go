package runtime_test

import (
	"testing"

	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// recorder captures every resolver invocation so tests can assert on
// execution order and argument content.
type recorder struct {
	calls []domain.CommandName
	args  map[domain.CommandName]map[string]any
}

func newRecorder() *recorder {
	return &recorder{args: make(map[domain.CommandName]map[string]any)}
}

func (r *recorder) record(name domain.CommandName, args map[string]any) {
	r.calls = append(r.calls, name)
	r.args[name] = args
}

func (r *recorder) reset() {
	r.calls = nil
	r.args = make(map[domain.CommandName]map[string]any)
}

// resolver returns a Resolver that records the call and echoes args under
// each given output key.
func (r *recorder) resolver(name domain.CommandName, outputs ...string) domain.Resolver {
	return func(args map[string]any) (map[string]any, error) {
		r.record(name, args)
		out := make(map[string]any, len(outputs))
		for _, key := range outputs {
			out[key] = map[string]any{"via": string(name), "args": args}
		}
		return out, nil
	}
}

// userSchema builds the org/office/user shape most engine tests run
// against: an org owns an office, an office hosts users, users start
// pending and can be activated, suspended, or deleted.
func userSchema(t *testing.T, rec *recorder) *schema.Index {
	t.Helper()

	commands := []*domain.Command{
		{
			Name: "create_org",
			Params: map[string]domain.Param{
				"name": domain.ValueParam{Value: "Acme"},
			},
			Produce: []domain.Instruction{{Entity: "org", From: "org"}},
			Resolve: rec.resolver("create_org", "org"),
		},
		{
			Name: "create_office",
			Params: map[string]domain.Param{
				"org":  domain.EntityParam{Entity: "org"},
				"name": domain.ValueParam{Value: "HQ"},
			},
			Produce: []domain.Instruction{{Entity: "office", From: "office"}},
			Resolve: rec.resolver("create_office", "office"),
		},
		{
			Name: "create_user",
			Params: map[string]domain.Param{
				"office": domain.EntityParam{Entity: "office"},
				"role":   domain.ValueParam{Value: "normal"},
			},
			Produce: []domain.Instruction{{Entity: "user", From: "user"}},
			Resolve: rec.resolver("create_user", "user"),
		},
		{
			Name: "activate_user",
			Params: map[string]domain.Param{
				"user": domain.EntityParam{Entity: "user"},
			},
			Update:  []domain.Instruction{{Entity: "user", From: "user"}},
			Resolve: rec.resolver("activate_user", "user"),
		},
		{
			Name: "suspend_user",
			Params: map[string]domain.Param{
				"user": domain.EntityParam{Entity: "user", WithTraits: []domain.TraitName{"active"}},
			},
			Update:  []domain.Instruction{{Entity: "user", From: "user"}},
			Resolve: rec.resolver("suspend_user", "user"),
		},
		{
			Name: "delete_user",
			Params: map[string]domain.Param{
				"user": domain.EntityParam{Entity: "user"},
			},
			Delete:  []domain.Instruction{{Entity: "user"}},
			Resolve: rec.resolver("delete_user"),
		},
	}

	traits := []*domain.Trait{
		{
			Name:   "pending",
			Entity: "user",
			Exec:   domain.ExecStep{Command: "create_user"},
		},
		{
			Name:   "active",
			Entity: "user",
			Exec:   domain.ExecStep{Command: "activate_user"},
			From:   []domain.TraitName{"pending"},
		},
		{
			Name:   "suspended",
			Entity: "user",
			Exec:   domain.ExecStep{Command: "suspend_user"},
			From:   []domain.TraitName{"active"},
		},
	}

	ix, err := schema.New(commands, traits)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return ix
}
