package tasks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/config"
)

const (
	GridStack       = "grid_stack"
	ParticlePour    = "particle_pour"
	ArticulatedURDF = "articulated_urdf"
)

// Builder constructs a runnable task from configuration.
type Builder interface {
	Build(cfg *config.Config) (*bench.Runtime, error)
}

type BuilderFunc func(cfg *config.Config) (*bench.Runtime, error)

func (f BuilderFunc) Build(cfg *config.Config) (*bench.Runtime, error) { return f(cfg) }

// Registry maps canonical task names and their aliases to builders.
type Registry struct {
	builders map[string]Builder
	aliases  map[string]string
}

// NewRegistry returns a registry holding the built-in tasks.
func NewRegistry() *Registry {
	r := &Registry{
		builders: make(map[string]Builder),
		aliases:  make(map[string]string),
	}
	r.mustRegister(GridStack, BuilderFunc(BuildGridStack), "stack", "cube", "cube_stack")
	r.mustRegister(ParticlePour, BuilderFunc(BuildParticlePour), "pour", "balls", "pouring_balls")
	r.mustRegister(ArticulatedURDF, BuilderFunc(BuildArticulatedURDF), "humanoid", "urdf", "humanoid_from_urdf")
	return r
}

// Register adds a builder under a canonical name. Names and aliases are
// case-insensitive and must not collide with existing ones.
func (r *Registry) Register(name string, b Builder, aliases ...string) error {
	name = normalize(name)
	if name == "" {
		return fmt.Errorf("register task: empty name")
	}
	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("register task: %s already registered", name)
	}
	if target, ok := r.aliases[name]; ok {
		return fmt.Errorf("register task: %s is already an alias of %s", name, target)
	}
	for _, a := range aliases {
		a = normalize(a)
		if _, ok := r.builders[a]; ok {
			return fmt.Errorf("register task: alias %s shadows a task", a)
		}
		if target, ok := r.aliases[a]; ok {
			return fmt.Errorf("register task: alias %s already points at %s", a, target)
		}
	}

	r.builders[name] = b
	for _, a := range aliases {
		r.aliases[normalize(a)] = name
	}
	return nil
}

func (r *Registry) mustRegister(name string, b Builder, aliases ...string) {
	if err := r.Register(name, b, aliases...); err != nil {
		panic(err)
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve lowercases and trims raw and substitutes a known alias. Unknown
// names pass through.
func (r *Registry) Resolve(raw string) string {
	name := normalize(raw)
	if target, ok := r.aliases[name]; ok {
		return target
	}
	return name
}

// Builder returns the builder registered under a canonical name.
func (r *Registry) Builder(name string) (Builder, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, &bench.UnknownTaskError{Name: name, Available: r.List()}
	}
	return b, nil
}

// List returns every canonical task name in lexicographic order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Aliases returns the sorted aliases of a canonical name.
func (r *Registry) Aliases(name string) []string {
	var out []string
	for alias, target := range r.aliases {
		if target == name {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}
