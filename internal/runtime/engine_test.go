package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sower/internal/runtime"
	"github.com/aretw0/sower/pkg/domain"
)

func TestEngine_Produce_ResolvesDependencyChain(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("user", "active"))
	require.NoError(t, err)

	assert.Equal(t, []domain.CommandName{"create_org", "create_office", "create_user", "activate_user"}, rec.calls)

	assert.True(t, ctx.Bound("org"))
	assert.True(t, ctx.Bound("office"))
	assert.True(t, ctx.Bound("user"))
	assert.True(t, ctx.HasTrait("user", "active"))
	assert.False(t, ctx.HasTrait("user", "pending"), "activation should strip the pending trait")
}

func TestEngine_Produce_Idempotent(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("user", "active"))
	require.NoError(t, err)
	executed := len(rec.calls)

	t.Run("same request is a no-op", func(t *testing.T) {
		out, err := engine.Produce(ctx, domain.Want("user", "active"))
		require.NoError(t, err)
		assert.Len(t, rec.calls, executed, "no command should run again")
		assert.True(t, out.HasTrait("user", "active"))
	})

	t.Run("weaker request is a no-op", func(t *testing.T) {
		_, err := engine.Produce(ctx, domain.Want("user"))
		require.NoError(t, err)
		assert.Len(t, rec.calls, executed)
	})

	t.Run("further trait runs only the missing command", func(t *testing.T) {
		_, err := engine.Produce(ctx, domain.Want("user", "suspended"))
		require.NoError(t, err)
		assert.Equal(t, []domain.CommandName{"suspend_user"}, rec.calls[executed:])
	})
}

func TestEngine_Produce_InputContextUntouched(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))
	before := engine.Init()

	_, err := engine.Produce(before, domain.Want("user"))
	require.NoError(t, err)

	assert.Empty(t, before.Entities, "engine must return a fresh context, not mutate the input")
	assert.Empty(t, before.Meta.Trails)
}

func TestEngine_Produce_TrailAccuracy(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("user", "suspended"))
	require.NoError(t, err)

	trail := ctx.Meta.Trails["user"]
	require.NotNil(t, trail)

	assert.Equal(t, domain.CommandName("create_user"), trail.ProducedBy.Command)
	assert.Equal(t, []domain.TraitName{"pending"}, trail.ProducedBy.Added)

	require.Len(t, trail.UpdatedBy, 2)
	assert.Equal(t, domain.CommandName("activate_user"), trail.UpdatedBy[0].Command)
	assert.Equal(t, []domain.TraitName{"active"}, trail.UpdatedBy[0].Added)
	assert.Equal(t, []domain.TraitName{"pending"}, trail.UpdatedBy[0].Removed)
	assert.Equal(t, domain.CommandName("suspend_user"), trail.UpdatedBy[1].Command)
	assert.Equal(t, []domain.TraitName{"active"}, trail.UpdatedBy[1].Removed)

	assert.Equal(t, []domain.TraitName{"suspended"}, ctx.Meta.CurrentTraits["user"])
}

func TestEngine_Produce_MultipleRequestsShareDependencies(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	_, err := engine.Produce(engine.Init(), domain.Want("office"), domain.Want("user"))
	require.NoError(t, err)

	// org and office are created once even though both requests need them.
	assert.Equal(t, []domain.CommandName{"create_org", "create_office", "create_user"}, rec.calls)
}

func TestEngine_Produce_UnknownNames(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	t.Run("unknown entity suggests the closest name", func(t *testing.T) {
		_, err := engine.Produce(engine.Init(), domain.Want("usr"))
		var unknown *domain.UnknownEntityError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, domain.EntityName("usr"), unknown.Name)
		assert.Equal(t, domain.EntityName("user"), unknown.Suggestion)
	})

	t.Run("unknown trait suggests the closest name", func(t *testing.T) {
		_, err := engine.Produce(engine.Init(), domain.Want("user", "actve"))
		var unknown *domain.UnknownTraitError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, domain.TraitName("active"), unknown.Suggestion)
	})

	assert.Empty(t, rec.calls, "validation failures must happen before any execution")
}

func TestEngine_PreProduce_CreatesOnlyDependencies(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.PreProduce(engine.Init(), domain.Want("user", "active"))
	require.NoError(t, err)

	assert.Equal(t, []domain.CommandName{"create_org", "create_office"}, rec.calls)
	assert.True(t, ctx.Bound("office"))
	assert.False(t, ctx.Bound("user"), "the requested entity itself must not be produced")
}

func TestEngine_Exec(t *testing.T) {
	t.Run("creates missing dependencies first", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(userSchema(t, rec))

		ctx, err := engine.Exec(engine.Init(), "create_office", nil)
		require.NoError(t, err)

		assert.Equal(t, []domain.CommandName{"create_org", "create_office"}, rec.calls)
		assert.True(t, ctx.Bound("office"))
	})

	t.Run("explicit argument suppresses dependency creation", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(userSchema(t, rec))

		ctx, err := engine.Exec(engine.Init(), "create_office", map[string]any{"org": map[string]any{"id": 1}})
		require.NoError(t, err)

		assert.Equal(t, []domain.CommandName{"create_office"}, rec.calls)
		assert.False(t, ctx.Bound("org"))
	})

	t.Run("disabled dependent creation fails on missing entities", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(userSchema(t, rec))

		ctx := engine.Init()
		ctx.Meta.DependentCreation = false
		_, err := engine.Exec(ctx, "create_office", nil)

		var notFound *domain.EntityNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, domain.EntityName("org"), notFound.Entity)
		assert.Equal(t, "read", notFound.Op)
	})

	t.Run("undeclared argument is rejected", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(userSchema(t, rec))

		_, err := engine.Exec(engine.Init(), "create_org", map[string]any{"nmae": "Acme"})
		var undeclared *domain.UndeclaredArgError
		require.ErrorAs(t, err, &undeclared)
		assert.Equal(t, "nmae", undeclared.Key)
	})

	t.Run("unknown command suggests the closest name", func(t *testing.T) {
		rec := newRecorder()
		engine := runtime.NewEngine(userSchema(t, rec))

		_, err := engine.Exec(engine.Init(), "create_usr", nil)
		var unknown *domain.UnknownCommandError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, domain.CommandName("create_user"), unknown.Suggestion)
	})
}

func TestEngine_PreExec_CreatesDependenciesOnly(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.PreExec(engine.Init(), "create_user", nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.CommandName{"create_org", "create_office"}, rec.calls)
	assert.False(t, ctx.Bound("user"))
	assert.True(t, ctx.Meta.DependentCreation, "the re-entrancy flag must be restored")
}

func TestEngine_Rebind(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("user"))
	require.NoError(t, err)

	t.Run("scoped rebinding produces a second instance", func(t *testing.T) {
		out, err := engine.Rebind(ctx, map[domain.EntityName]domain.BindingName{"user": "second_user"}, func(scoped *domain.Context) (*domain.Context, error) {
			return engine.Produce(scoped, domain.Want("user", "active"))
		})
		require.NoError(t, err)

		assert.Contains(t, out.Entities, domain.BindingName("user"))
		assert.Contains(t, out.Entities, domain.BindingName("second_user"))
		assert.True(t, out.HasTrait("second_user", "active"))
		assert.False(t, out.HasTrait("user", "active"), "the original instance is untouched")

		assert.Empty(t, out.Meta.Rebinding, "the rebinding table is restored on the way out")
		_, ok := out.Lookup("user")
		assert.True(t, ok)
	})

	t.Run("unknown entity in the binding table fails", func(t *testing.T) {
		_, err := engine.Rebind(ctx, map[domain.EntityName]domain.BindingName{"ghost": "g1"}, func(scoped *domain.Context) (*domain.Context, error) {
			return scoped, nil
		})
		var unknown *domain.UnknownEntityError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("nil function is rejected", func(t *testing.T) {
		_, err := engine.Rebind(ctx, nil, nil)
		require.Error(t, err)
	})
}

func TestEngine_Produce_RequestAs(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx, err := engine.Produce(engine.Init(), domain.Want("user"))
	require.NoError(t, err)

	out, err := engine.Produce(ctx, domain.Request{Entity: "user", As: "admin"})
	require.NoError(t, err)

	assert.Contains(t, out.Entities, domain.BindingName("admin"))
	assert.Contains(t, out.Entities, domain.BindingName("user"))
	assert.Empty(t, out.Meta.Rebinding, "As is scoped to a single run")
}

func TestEngine_Produce_UntrackedEntityRejected(t *testing.T) {
	rec := newRecorder()
	engine := runtime.NewEngine(userSchema(t, rec))

	ctx := engine.Init()
	ctx.Entities["user"] = map[string]any{"id": 1} // inserted by hand, no trail

	_, err := engine.Produce(ctx, domain.Want("user", "active"))
	var untracked *domain.UntrackedEntityError
	require.ErrorAs(t, err, &untracked)
	assert.Equal(t, domain.EntityName("user"), untracked.Entity)
}
