package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sower/internal/runtime"
	"github.com/aretw0/sower/pkg/domain"
	"github.com/aretw0/sower/pkg/schema"
)

// docSchema has an entity with two producer commands, one of which carries
// a trait, so tests can exercise ambiguity resolution.
func docSchema(t *testing.T, rec *recorder) *schema.Index {
	t.Helper()

	commands := []*domain.Command{
		{
			Name:    "create_draft",
			Params:  map[string]domain.Param{},
			Produce: []domain.Instruction{{Entity: "doc", From: "doc"}},
			Resolve: rec.resolver("create_draft", "doc"),
		},
		{
			Name: "import_doc",
			Params: map[string]domain.Param{
				"source": domain.ValueParam{Value: "upload"},
			},
			Produce: []domain.Instruction{{Entity: "doc", From: "doc"}},
			Resolve: rec.resolver("import_doc", "doc"),
		},
		{
			Name: "create_review",
			Params: map[string]domain.Param{
				"doc": domain.EntityParam{Entity: "doc"},
			},
			Produce: []domain.Instruction{{Entity: "review", From: "review"}},
			Resolve: rec.resolver("create_review", "review"),
		},
	}

	traits := []*domain.Trait{
		{
			Name:   "imported",
			Entity: "doc",
			Exec:   domain.ExecStep{Command: "import_doc"},
		},
	}

	ix, err := schema.New(commands, traits)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return ix
}

func TestEngine_Produce_AmbiguousProducer(t *testing.T) {
	t.Run("no constraint picks the first declared producer", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(docSchema(t, rec))

		_, err := engine.Produce(engine.Init(), domain.Want("doc"))
		require.NoError(t, err)
		assert.Equal(t, []domain.CommandName{"create_draft"}, rec.calls)
	})

	t.Run("requested trait narrows the candidates", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(docSchema(t, rec))

		ctx, err := engine.Produce(engine.Init(), domain.Want("doc", "imported"))
		require.NoError(t, err)
		assert.Equal(t, []domain.CommandName{"import_doc"}, rec.calls)
		assert.True(t, ctx.HasTrait("doc", "imported"))
	})

	t.Run("dependency resolution is equally deterministic", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(docSchema(t, rec))

		_, err := engine.Produce(engine.Init(), domain.Want("review"))
		require.NoError(t, err)
		assert.Equal(t, []domain.CommandName{"create_draft", "create_review"}, rec.calls)
	})
}

// tokenSchema has a producer with a side-effect production: import_user is
// the only producer of user but also brings a token along, while token
// alone is also producible by mint_token.
func tokenSchema(t *testing.T, rec *recorder) *schema.Index {
	t.Helper()

	commands := []*domain.Command{
		{
			Name:    "mint_token",
			Params:  map[string]domain.Param{},
			Produce: []domain.Instruction{{Entity: "token", From: "token"}},
			Resolve: rec.resolver("mint_token", "token"),
		},
		{
			Name:   "import_user",
			Params: map[string]domain.Param{},
			Produce: []domain.Instruction{
				{Entity: "user", From: "user"},
				{Entity: "token", From: "token"},
			},
			Resolve: rec.resolver("import_user", "user", "token"),
		},
		{
			Name: "create_badge",
			Params: map[string]domain.Param{
				"token": domain.EntityParam{Entity: "token"},
			},
			Produce: []domain.Instruction{{Entity: "badge", From: "badge"}},
			Resolve: rec.resolver("create_badge", "badge"),
		},
	}

	ix, err := schema.New(commands, nil)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return ix
}

func TestEngine_Produce_SharedProducerKeepsRequestedEntity(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(tokenSchema(t, rec))

	// import_user is scheduled for the user request before create_badge's
	// token dependency opens the mint_token/import_user alternative; the
	// already-scheduled producer must win the group, not get displaced.
	ctx, err := engine.Produce(engine.Init(), domain.Want("user"), domain.Want("badge"))
	require.NoError(t, err)

	assert.Equal(t, []domain.CommandName{"import_user", "create_badge"}, rec.calls)
	assert.True(t, ctx.Bound("user"), "explicitly requested user must be produced")
	assert.True(t, ctx.Bound("token"))
	assert.True(t, ctx.Bound("badge"))
}

// taskSchema lets two traits demand the same producer with different
// argument patterns.
func taskSchema(t *testing.T, rec *recorder) *schema.Index {
	t.Helper()

	commands := []*domain.Command{
		{
			Name: "create_task",
			Params: map[string]domain.Param{
				"priority": domain.ValueParam{Value: "normal"},
				"labels": domain.ContainerParam{Children: map[string]domain.Param{
					"team": domain.ValueParam{Value: "core"},
				}},
			},
			Produce: []domain.Instruction{{Entity: "task", From: "task"}},
			Resolve: rec.resolver("create_task", "task"),
		},
	}

	traits := []*domain.Trait{
		{
			Name:   "urgent",
			Entity: "task",
			Exec:   domain.ExecStep{Command: "create_task", Args: map[string]any{"priority": "high"}},
		},
		{
			Name:   "backlog",
			Entity: "task",
			Exec:   domain.ExecStep{Command: "create_task", Args: map[string]any{"priority": "low"}},
		},
		{
			Name:   "platform",
			Entity: "task",
			Exec:   domain.ExecStep{Command: "create_task", Args: map[string]any{"labels": map[string]any{"team": "platform"}}},
		},
		{
			Name:   "edge",
			Entity: "task",
			Exec:   domain.ExecStep{Command: "create_task", Args: map[string]any{"labels": map[string]any{"team": "edge"}}},
		},
	}

	ix, err := schema.New(commands, traits)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return ix
}

func TestEngine_Produce_ConflictingTraitArgs(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(taskSchema(t, rec))

	_, err := engine.Produce(engine.Init(), domain.Want("task", "urgent", "backlog"))

	var conflict *domain.ConflictingTraitsError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.EntityName("task"), conflict.Entity)
	assert.Equal(t, "priority", conflict.Path)
	assert.ElementsMatch(t, []any{"high", "low"}, conflict.Values[:])
	assert.Empty(t, rec.calls, "the conflict must surface before anything executes")
}

func TestEngine_Produce_NestedTraitArgConflictCitesBothTraits(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(taskSchema(t, rec))

	// platform claims the whole labels subtree first; the clash with edge
	// sits on a nested leaf and must still name both traits.
	_, err := engine.Produce(engine.Init(), domain.Want("task", "platform", "edge"))

	var conflict *domain.ConflictingTraitsError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "labels.team", conflict.Path)
	assert.ElementsMatch(t, []domain.TraitName{"platform", "edge"}, conflict.Traits[:])
	assert.ElementsMatch(t, []any{"platform", "edge"}, conflict.Values[:])
	assert.Empty(t, rec.calls)
}

func TestEngine_Produce_CompatibleTraitArgsMerge(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(taskSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("task", "urgent", "platform"))
	require.NoError(t, err)

	args := rec.args["create_task"]
	assert.Equal(t, "high", args["priority"])
	assert.Equal(t, map[string]any{"team": "platform"}, args["labels"])

	assert.True(t, ctx.HasTrait("task", "urgent"))
	assert.True(t, ctx.HasTrait("task", "platform"))
	assert.False(t, ctx.HasTrait("task", "backlog"))
}

func TestEngine_Produce_TraitMismatchOnExistingEntity(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(taskSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("task", "urgent"))
	require.NoError(t, err)

	// create_task already ran with priority "high"; it cannot run again
	// with "low" on the same instance.
	_, err = engine.Produce(ctx, domain.Want("task", "backlog"))

	var mismatch *domain.TraitMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, domain.TraitName("backlog"), mismatch.Trait)
	assert.Equal(t, domain.CommandName("create_task"), mismatch.Command)
}

func TestEngine_Produce_AllTraitsFailedAggregates(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(taskSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("task", "urgent"))
	require.NoError(t, err)

	_, err = engine.Produce(ctx, domain.Want("task", "backlog", "platform"))

	var all *domain.AllTraitsFailedError
	require.ErrorAs(t, err, &all)
	assert.Len(t, all.Reasons, 2)

	var top *domain.TraitResolutionError
	require.ErrorAs(t, err, &top)
	assert.Equal(t, []domain.TraitName{"backlog", "platform"}, top.Requested)
}
