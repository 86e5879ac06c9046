package interpret

import (
	"errors"
	"fmt"
)

// ErrUnknownEngine is returned by Registry.Select for names nobody registered.
var ErrUnknownEngine = errors.New("unknown llm_name")

// Registry maps engine names (and aliases) to interpreters.
type Registry struct {
	def     string
	byName  map[string]Interpreter
	primary []string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{def: defaultName, byName: map[string]Interpreter{}}
}

// Register adds in under name and every alias. The first registration becomes the
// default when no default name was given.
func (r *Registry) Register(in Interpreter, name string, aliases ...string) {
	if r.def == "" {
		r.def = name
	}
	r.byName[name] = in
	r.primary = append(r.primary, name)
	for _, a := range aliases {
		r.byName[a] = in
	}
}

// Select returns the interpreter for name; an empty name picks the default.
func (r *Registry) Select(name string) (Interpreter, error) {
	if name == "" {
		name = r.def
	}
	if in, ok := r.byName[name]; ok && in != nil {
		return in, nil
	}
	return nil, fmt.Errorf("%w %q; available: %v", ErrUnknownEngine, name, r.primary)
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.primary...)
}

func (r *Registry) Default() string { return r.def }
