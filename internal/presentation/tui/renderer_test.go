package tui

import (
	"strings"
	"testing"

	"github.com/aretw0/sower/pkg/domain"
)

func TestPlanMarkdown(t *testing.T) {
	plan := &domain.Plan{
		Steps: []domain.PlanStep{
			{Command: "create_org"},
			{Command: "create_task", Args: map[string]any{"priority": "high"}},
			{Command: "delete_task"},
		},
		Nodes: []domain.PlanNode{
			{Command: "create_org"},
			{Command: "create_task", Requires: []domain.CommandName{"create_org"}, Root: true},
			{Command: "delete_task", Requires: []domain.CommandName{"create_task"}, Destructive: true},
		},
	}

	md := PlanMarkdown(plan)

	if !strings.Contains(md, "# Execution plan") {
		t.Error("Expected plan heading")
	}
	if !strings.Contains(md, "1. `create_org`") {
		t.Error("Expected numbered first step")
	}
	if !strings.Contains(md, "2. `create_task` *(requested)*") {
		t.Error("Expected requested marker on root steps")
	}
	if !strings.Contains(md, "3. `delete_task` *(destructive)*") {
		t.Error("Expected destructive marker")
	}
	if !strings.Contains(md, "after: `create_org`") {
		t.Error("Expected dependency listing")
	}
	if !strings.Contains(md, "priority:high") {
		t.Error("Expected synthesized args in the summary")
	}
}

func TestPlanMarkdown_Empty(t *testing.T) {
	md := PlanMarkdown(&domain.Plan{})
	if !strings.Contains(md, "Nothing to execute") {
		t.Errorf("Expected empty-plan message, got: %s", md)
	}
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("# Hello")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "Hello") {
		t.Errorf("Expected rendered output to contain the heading text, got: %q", out)
	}
}
