package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/sower/pkg/domain"
)

func TestExecStep_Matches(t *testing.T) {
	t.Run("nil pattern matches any execution", func(t *testing.T) {
		step := domain.ExecStep{Command: "create_user"}
		assert.True(t, step.Matches(nil))
		assert.True(t, step.Matches(map[string]any{"role": "admin"}))
	})

	t.Run("literal pattern matches structurally", func(t *testing.T) {
		step := domain.ExecStep{
			Command: "create_task",
			Args:    map[string]any{"priority": "high"},
		}
		assert.True(t, step.Matches(map[string]any{"priority": "high", "title": "x"}))
		assert.False(t, step.Matches(map[string]any{"priority": "low"}))
		assert.False(t, step.Matches(map[string]any{"title": "x"}), "missing keys do not match")
	})

	t.Run("nested patterns recurse", func(t *testing.T) {
		step := domain.ExecStep{
			Command: "create_task",
			Args:    map[string]any{"labels": map[string]any{"team": "platform"}},
		}
		assert.True(t, step.Matches(map[string]any{
			"labels": map[string]any{"team": "platform", "area": "infra"},
		}))
		assert.False(t, step.Matches(map[string]any{
			"labels": map[string]any{"team": "core"},
		}))
	})

	t.Run("explicit predicate overrides the pattern", func(t *testing.T) {
		step := domain.ExecStep{
			Command: "create_task",
			Args:    map[string]any{"priority": "high"},
			Match: func(args map[string]any) bool {
				return args["priority"] != "low"
			},
		}
		assert.True(t, step.Matches(map[string]any{"priority": "normal"}))
		assert.False(t, step.Matches(map[string]any{"priority": "low"}))
	})
}

func TestExecStep_DefaultArgs(t *testing.T) {
	t.Run("pattern doubles as defaults", func(t *testing.T) {
		step := domain.ExecStep{Args: map[string]any{"priority": "high"}}
		assert.Equal(t, map[string]any{"priority": "high"}, step.DefaultArgs())
	})

	t.Run("generator overrides the pattern", func(t *testing.T) {
		step := domain.ExecStep{
			Args:     map[string]any{"priority": "high"},
			Generate: func() map[string]any { return map[string]any{"priority": "urgent"} },
		}
		assert.Equal(t, map[string]any{"priority": "urgent"}, step.DefaultArgs())
	})
}
