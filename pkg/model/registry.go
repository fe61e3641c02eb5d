package model

import (
	"fmt"

	"github.com/classroomai/gateway/pkg/registry"
)

// Registry wraps registry.BaseRegistry[Provider]: one named provider per
// deployment tier (default, optional fast).
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

// MustGet looks up a provider by name and panics at startup (not at
// request time) if it is missing — deployment misconfiguration is a
// fail-fast condition, not a per-request error path.
func (r *Registry) MustGet(name string) Provider {
	p, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("model: provider %q not registered", name))
	}
	return p
}
