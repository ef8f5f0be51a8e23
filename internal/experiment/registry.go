package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/integrators"
	"github.com/san-kum/vortexsim/internal/landscape"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["heun"] = func() dynamo.Integrator { return integrators.NewHeun() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	return r
}

// Register adds or replaces an integrator factory.
func (r *Registry) Register(name string, fn func() dynamo.Integrator) {
	r.integrators[name] = fn
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrConfig, name)
	}
	return fn(), nil
}

func (r *Registry) GetTopology(name string) (landscape.Topology, error) {
	return landscape.ParseTopology(name)
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListTopologies() []string {
	tops := landscape.Topologies()
	names := make([]string, len(tops))
	for i, t := range tops {
		names[i] = t.String()
	}
	return names
}
