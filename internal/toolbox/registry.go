package toolbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Runner executes a tool with validated parameters.
type Runner func(ctx context.Context, params map[string]string) error

// Registry holds runners keyed by tool ID.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Register adds a runner for a tool ID.
// Panics if the ID is already registered.
func (r *Registry) Register(id string, run Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := r.runners[key]; exists {
		panic(fmt.Sprintf("tool runner already registered: %s", id))
	}
	r.runners[key] = run
}

// IDs returns the registered tool IDs in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.runners))
	for id := range r.runners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch checks params against the tool's descriptor and runs it.
func (r *Registry) Dispatch(ctx context.Context, m *Manifest, id string, params map[string]string) error {
	tool, ok := m.Tool(id)
	if !ok {
		return fmt.Errorf("unknown tool: %s", id)
	}
	if tool.Descriptor == nil {
		return fmt.Errorf("tool %s has no readable %s", tool.ID, ToolFile)
	}

	r.mu.RLock()
	run, ok := r.runners[strings.ToLower(tool.ID)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tool %s has no runner", tool.ID)
	}

	if err := checkParams(tool.Descriptor.Parameters, params); err != nil {
		return fmt.Errorf("tool %s: %w", tool.ID, err)
	}
	return run(ctx, params)
}

func checkParams(declared []Parameter, params map[string]string) error {
	known := make(map[string]Parameter, len(declared))
	for _, p := range declared {
		known[p.Name] = p
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	for _, p := range declared {
		v, ok := params[p.Name]
		if !ok || strings.TrimSpace(v) == "" {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		switch p.Type {
		case TypeBool:
			if _, err := strconv.ParseBool(v); err != nil {
				return fmt.Errorf("parameter %q: %q is not a bool", p.Name, v)
			}
		case TypeInt:
			if _, err := strconv.Atoi(v); err != nil {
				return fmt.Errorf("parameter %q: %q is not an int", p.Name, v)
			}
		}
	}
	return nil
}

// ParseParams turns name=value arguments into a parameter map.
func ParseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("parameter %q is not name=value", arg)
		}
		params[strings.TrimSpace(name)] = value
	}
	return params, nil
}
