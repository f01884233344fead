package contestdomain

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps rule names to implementations. Rules are registered at
// startup and looked up by the name stored on each contest.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]ContestRule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: map[string]ContestRule{}}
}

// DefaultRegistry returns a registry with acm, oi and homework.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range []ContestRule{ACMRule{}, OIRule{}, HomeworkRule{}} {
		_ = r.Register(rule)
	}
	return r
}

// Register adds a rule. Names must be unique.
func (r *Registry) Register(rule ContestRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.Name()]; ok {
		return fmt.Errorf("contest rule %q already registered", rule.Name())
	}
	r.rules[rule.Name()] = rule
	return nil
}

// Get returns the rule registered under name.
func (r *Registry) Get(name string) (ContestRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// Names lists registered rule names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Restrict returns a registry holding only the named rules.
func (r *Registry) Restrict(names []string) (*Registry, error) {
	out := NewRegistry()
	for _, name := range names {
		rule, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown contest rule %q", name)
		}
		if err := out.Register(rule); err != nil {
			return nil, err
		}
	}
	return out, nil
}
