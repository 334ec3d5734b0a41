// Package ai implements the Hierarchical Task Network (HTN) planner that
// drives bots.
//
// A domain decomposes the abstract tasks "turn" and "fight" into primitive
// operators through ordered methods. Method preconditions are Lua hooks;
// operators map to game actions.
package ai

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Actions a bot operator may issue.
const (
	ActionMove    = "move"
	ActionCollect = "collect"
	ActionEngage  = "engage"
	ActionEndTurn = "end_turn"
	ActionEscape  = "escape"
	ActionAttack  = "attack"
)

var knownActions = []string{ActionMove, ActionCollect, ActionEngage, ActionEndTurn, ActionEscape, ActionAttack}

// Task is an abstract goal that can be decomposed by methods.
//
// Precondition: ID must be non-empty.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
//
// Precondition: TaskID, ID, and Subtasks must be non-empty.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"` // Lua function name; empty = always applicable
	Subtasks     []string `yaml:"subtasks"`
}

// Operator is a primitive action with a target token resolved against the
// world state at planning time.
//
// Precondition: ID must be non-empty and Action one of the Action* constants.
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
	Target string `yaml:"target"` // see WorldState.ResolveTarget
}

// Domain holds the full HTN domain loaded from a YAML file.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees a non-empty ID, at least one task,
// unique non-empty IDs per kind, operators with a known action that do not
// shadow a task, and methods whose task and subtasks all resolve.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai.Domain: ID must not be empty")
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("ai.Domain %q: must have at least one task", d.ID)
	}
	tasks, err := uniqueIDs(d.ID, "task", d.Tasks, func(t *Task) string { return t.ID })
	if err != nil {
		return err
	}
	ops, err := uniqueIDs(d.ID, "operator", d.Operators, func(op *Operator) string { return op.ID })
	if err != nil {
		return err
	}
	for _, op := range d.Operators {
		switch {
		case !slices.Contains(knownActions, op.Action):
			return fmt.Errorf("ai.Domain %q operator %q: unknown action %q", d.ID, op.ID, op.Action)
		case tasks[op.ID]:
			return fmt.Errorf("ai.Domain %q: operator %q shadows a task", d.ID, op.ID)
		}
	}
	if _, err := uniqueIDs(d.ID, "method", d.Methods, func(m *Method) string { return m.ID }); err != nil {
		return err
	}
	for _, m := range d.Methods {
		if !tasks[m.TaskID] {
			return fmt.Errorf("ai.Domain %q method %q: TaskID %q references unknown task", d.ID, m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			return fmt.Errorf("ai.Domain %q method %q: subtasks must not be empty", d.ID, m.ID)
		}
		if i := slices.IndexFunc(m.Subtasks, func(sub string) bool { return !tasks[sub] && !ops[sub] }); i >= 0 {
			return fmt.Errorf("ai.Domain %q method %q: subtask %q is neither a task nor an operator", d.ID, m.ID, m.Subtasks[i])
		}
	}
	return nil
}

// uniqueIDs collects the IDs of items, rejecting empty and repeated ones.
func uniqueIDs[T any](domain, kind string, items []T, id func(T) string) (map[string]bool, error) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		key := id(it)
		if key == "" {
			return nil, fmt.Errorf("ai.Domain %q: %s has empty ID", domain, kind)
		}
		if seen[key] {
			return nil, fmt.Errorf("ai.Domain %q: duplicate %s ID %q", domain, kind, key)
		}
		seen[key] = true
	}
	return seen, nil
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// yamlDomainFile wraps the YAML top-level key.
type yamlDomainFile struct {
	Domain *Domain `yaml:"domain"`
}

// ParseDomain decodes and validates one domain document.
func ParseDomain(data []byte) (*Domain, error) {
	var f yamlDomainFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ai.ParseDomain: %w", err)
	}
	if f.Domain == nil {
		return nil, errors.New("ai.ParseDomain: missing top-level 'domain' key")
	}
	if err := f.Domain.Validate(); err != nil {
		return nil, err
	}
	return f.Domain, nil
}

// LoadDomains reads all *.yaml files from dir and returns parsed Domains.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
// Postcondition: returns (nil, nil) if dir contains no .yaml files.
func LoadDomains(dir string) ([]*Domain, error) {
	return LoadDomainsFS(os.DirFS(dir), ".")
}

// LoadDomainsFS is LoadDomains over an fs.FS, used for embedded domains.
func LoadDomainsFS(fsys fs.FS, dir string) ([]*Domain, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadDomains: reading %q: %w", dir, err)
	}
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: reading %s: %w", e.Name(), err)
		}
		d, err := ParseDomain(data)
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s: %w", e.Name(), err)
		}
		domains = append(domains, d)
	}
	return domains, nil
}
