package ai

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ScriptCaller is the interface required by the Planner to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function. Returns LNil if the function is not defined.
	CallHook(hook string, args ...lua.LValue) lua.LValue
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Action string // "cast", "stop", "pass"
	Spell  uint32
	Target uint64 // resolved GUID; 0 when the operator names no target
}

// Planner evaluates an HTN domain for a single unit and produces an ordered
// list of candidate actions, best first.
//
// Invariant: domain and caller must not be nil.
type Planner struct {
	domain *Domain
	caller ScriptCaller
}

// NewPlanner constructs a Planner.
//
// Precondition: domain and caller must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if caller == nil {
		panic("ai.NewPlanner: caller must not be nil")
	}
	return &Planner{domain: domain, caller: caller}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan evaluates the HTN domain against state and returns an ordered plan.
// Preconditions receive the planning unit's GUID and its health percentage.
//
// Precondition: state and state.NPC must not be nil.
// Postcondition: returns non-nil slice (may be empty); never returns error for Lua failures
// (they are treated as precondition-false).
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.NPC == nil {
		return nil, fmt.Errorf("ai.Planner.Plan: state and state.NPC must not be nil")
	}

	taskQueue := []string{RootTask}
	result := []PlannedAction{}

	const maxDepth = 32 // guard against recursive domains
	steps := 0

	for len(taskQueue) > 0 && steps < maxDepth {
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			target := state.ResolveTarget(op.Target)
			if op.Target != "" && target == 0 {
				// Nobody matches the operator's target; drop it.
				continue
			}
			result = append(result, PlannedAction{
				Action: op.Action,
				Spell:  op.Spell,
				Target: target,
			})
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}

		// Prepend subtasks (preserves ordered decomposition).
		next := make([]string, 0, len(method.Subtasks)+len(taskQueue))
		next = append(next, method.Subtasks...)
		taskQueue = append(next, taskQueue...)
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
		val := p.caller.CallHook(m.Precondition,
			lua.LNumber(state.NPC.GUID),
			lua.LNumber(state.NPC.HealthPercent()),
		)
		if val == lua.LTrue {
			return m
		}
	}
	return nil
}
