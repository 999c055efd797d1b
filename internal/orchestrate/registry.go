package orchestrate

import "github.com/rotisserie/eris"

// Registry maps target names to their source chains, preserving
// registration order for deterministic runs.
type Registry struct {
	targets map[string]Target
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds a target. Registration order defines run order, which
// matters: legislators must land before the targets that attribute
// records to them.
func (r *Registry) Register(t Target) {
	if _, exists := r.targets[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.targets[t.Name] = t
}

// Get returns a target by name.
func (r *Registry) Get(name string) (Target, error) {
	t, ok := r.targets[name]
	if !ok {
		return Target{}, eris.Errorf("orchestrate: unknown target %q", name)
	}
	return t, nil
}

// Select returns the named targets, or all in registration order when
// names is empty.
func (r *Registry) Select(names []string) ([]Target, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	result := make([]Target, 0, len(names))
	for _, name := range names {
		t, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// All returns every target in registration order.
func (r *Registry) All() []Target {
	result := make([]Target, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.targets[name])
	}
	return result
}

// AllNames returns registered target names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
