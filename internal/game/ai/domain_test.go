package ai_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/ai"
)

func minimalDomain() *ai.Domain {
	return &ai.Domain{
		ID:    "test",
		Tasks: []*ai.Task{{ID: "turn"}},
		Methods: []*ai.Method{{
			TaskID:   "turn",
			ID:       "m1",
			Subtasks: []string{"op1"},
		}},
		Operators: []*ai.Operator{{ID: "op1", Action: ai.ActionEndTurn}},
	}
}

func TestDomain_Validate_RejectsEmpty(t *testing.T) {
	d := &ai.Domain{}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for empty Domain")
	}
}

func TestDomain_Validate_AcceptsMinimal(t *testing.T) {
	if err := minimalDomain().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDomain_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *ai.Domain)
		want   string
	}{
		{"unknown action", func(d *ai.Domain) { d.Operators[0].Action = "dance" }, "unknown action"},
		{"duplicate task", func(d *ai.Domain) { d.Tasks = append(d.Tasks, &ai.Task{ID: "turn"}) }, "duplicate task"},
		{"duplicate operator", func(d *ai.Domain) { d.Operators = append(d.Operators, d.Operators[0]) }, "duplicate operator"},
		{"operator shadows task", func(d *ai.Domain) { d.Operators[0].ID = "turn"; d.Methods[0].Subtasks = []string{"turn"} }, "shadows"},
		{"dangling subtask", func(d *ai.Domain) { d.Methods[0].Subtasks = []string{"ghost"} }, "neither a task nor an operator"},
		{"unknown method task", func(d *ai.Domain) { d.Methods[0].TaskID = "fight" }, "unknown task"},
		{"empty subtasks", func(d *ai.Domain) { d.Methods[0].Subtasks = nil }, "subtasks must not be empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := minimalDomain()
			tc.mutate(d)
			err := d.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDomain_MethodsForTask_ReturnsOrdered(t *testing.T) {
	d := &ai.Domain{
		Methods: []*ai.Method{
			{TaskID: "fight", ID: "m1", Subtasks: []string{"op1"}},
			{TaskID: "fight", ID: "m2", Subtasks: []string{"op2"}},
			{TaskID: "turn", ID: "m3", Subtasks: []string{"op3"}},
		},
	}
	methods := d.MethodsForTask("fight")
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
	if methods[0].ID != "m1" || methods[1].ID != "m2" {
		t.Fatalf("expected methods in declaration order [m1, m2], got [%s, %s]", methods[0].ID, methods[1].ID)
	}
}

const domainYAML = `
domain:
  id: test_domain
  description: Test
  tasks:
    - id: turn
      description: root
  methods:
    - task: turn
      id: default
      subtasks: [finish]
  operators:
    - id: finish
      action: end_turn
`

func TestLoadDomains_LoadsYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(domainYAML), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0600); err != nil {
		t.Fatal(err)
	}
	domains, err := ai.LoadDomains(dir)
	if err != nil {
		t.Fatalf("LoadDomains: %v", err)
	}
	if len(domains) != 1 || domains[0].ID != "test_domain" {
		t.Fatalf("unexpected domains: %v", domains)
	}
}

func TestLoadDomainsFS_InvalidDomainNamesFile(t *testing.T) {
	fsys := fstest.MapFS{
		"domains/good.yaml": {Data: []byte(domainYAML)},
		"domains/bad.yaml":  {Data: []byte("domain:\n  id: bad\n")},
	}
	_, err := ai.LoadDomainsFS(fsys, "domains")
	if err == nil || !strings.Contains(err.Error(), "bad.yaml") {
		t.Fatalf("expected error naming bad.yaml, got %v", err)
	}
}

func TestParseDomain_MissingKey(t *testing.T) {
	if _, err := ai.ParseDomain([]byte("tasks: []\n")); err == nil {
		t.Fatal("expected error for missing domain key")
	}
}

func TestProperty_Domain_OperatorByID_ConsistentLookup(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "n")
		ops := make([]*ai.Operator, n)
		ids := make([]string, n)
		for i := range ops {
			id := fmt.Sprintf("op%d", i)
			ids[i] = id
			ops[i] = &ai.Operator{ID: id, Action: ai.ActionEndTurn}
		}
		d := &ai.Domain{Operators: ops}

		for _, id := range ids {
			op, ok := d.OperatorByID(id)
			if !ok || op.ID != id {
				rt.Fatalf("OperatorByID(%q) = %v, %v", id, op, ok)
			}
		}

		unknown := rapid.StringMatching(`[a-z_]{1,10}`).Draw(rt, "unknown")
		if _, ok := d.OperatorByID(unknown); ok {
			rt.Fatalf("OperatorByID(%q) returned found, expected not found", unknown)
		}
	})
}
