package ai

import (
	"fmt"
	"sort"
)

// Registry indexes Planners by domain ID and falls back to a default domain
// for bots whose personality has no domain of its own.
//
// Invariant: each domain ID is registered at most once.
type Registry struct {
	planners  map[string]*Planner
	defaultID string
}

// NewRegistry returns an empty Registry whose fallback is defaultID.
func NewRegistry(defaultID string) *Registry {
	return &Registry{planners: make(map[string]*Planner), defaultID: defaultID}
}

// Register creates and stores a Planner for every domain, all sharing caller
// and scope.
//
// Precondition: caller must not be nil.
// Postcondition: returns error on domain ID collision; earlier domains stay
// registered.
func (r *Registry) Register(caller ScriptCaller, scope string, domains ...*Domain) error {
	for _, d := range domains {
		if _, exists := r.planners[d.ID]; exists {
			return fmt.Errorf("ai.Registry: domain %q already registered", d.ID)
		}
		r.planners[d.ID] = NewPlanner(d, caller, scope)
	}
	return nil
}

// PlannerFor returns the Planner for domainID, else the default Planner.
//
// Postcondition: ok is false only when neither is registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	if p, ok := r.planners[domainID]; ok {
		return p, true
	}
	p, ok := r.planners[r.defaultID]
	return p, ok
}

// IDs returns the registered domain IDs, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.planners))
	for id := range r.planners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
