package ai

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
)

// Root tasks of a bot domain.
const (
	TaskTurn  = "turn"
	TaskFight = "fight"
)

// ScriptCaller is the interface required by the Planner to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Operator string
	Action   string
	Target   Target
}

// Planner evaluates an HTN domain for one bot and produces an ordered action
// plan.
//
// Invariant: domain and caller must not be nil.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	scope  string
}

// NewPlanner constructs a Planner.
//
// Precondition: domain and caller must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, scope string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if caller == nil {
		panic("ai.NewPlanner: caller must not be nil")
	}
	return &Planner{domain: domain, caller: caller, scope: scope}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan decomposes root against state and returns an ordered plan.
// Operators whose target token resolves to nothing are dropped.
//
// Precondition: state and state.Bot must not be nil.
// Postcondition: returns non-nil slice (may be empty); never returns error for Lua failures
// (they are treated as precondition-false).
func (p *Planner) Plan(root string, state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Bot == nil {
		return nil, errors.New("ai.Planner.Plan: state and state.Bot must not be nil")
	}

	taskQueue := []string{root}
	result := []PlannedAction{}

	const maxDepth = 32 // guard against recursive domains
	steps := 0

	for len(taskQueue) > 0 && steps < maxDepth {
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			target, ok := state.ResolveTarget(op.Target)
			if !ok {
				continue
			}
			result = append(result, PlannedAction{Operator: op.ID, Action: op.Action, Target: target})
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}
		// Prepend subtasks (preserves ordered decomposition).
		taskQueue = append(append([]string(nil), method.Subtasks...), taskQueue...)
	}
	return result, nil
}

// findApplicableMethod returns the first Method for taskID whose precondition passes,
// or nil if none applies.
//
// Methods are tried in declaration order. An empty Precondition always passes.
func (p *Planner) findApplicableMethod(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" {
			return m
		}
		val, _ := p.caller.CallHook(p.scope, m.Precondition, lua.LString(state.Bot.UID))
		if val == lua.LTrue {
			return m
		}
	}
	return nil
}
