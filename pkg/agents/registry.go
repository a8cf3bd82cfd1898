// Package agents provides stock navigation agents and a registry that builds
// an agent chain from configuration.
package agents

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/entrhq/waypoint/pkg/config"
	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/navigation"
)

// ErrUnknownAgent is returned when a configured agent name has no factory.
var ErrUnknownAgent = errors.New("unknown navigation agent")

// Env carries the settings factories build agents from.
type Env struct {
	Navigation *config.NavigationSection
	Rules      *config.RulesSection
	Logger     *logging.Logger
}

func (e Env) logger(component string) *logging.Logger {
	if e.Logger == nil {
		return logging.Discard(component)
	}
	return e.Logger.With(component)
}

// Factory builds one agent. A nil agent with a nil error leaves the agent out
// of the chain.
type Factory func(env Env) (navigation.Agent, error)

// Registry maps agent names onto factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the stock agents: trace, rules,
// throttle and cache_bust.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("trace", func(env Env) (navigation.Agent, error) {
		return NewTrace(env.logger("trace")), nil
	})
	r.Register("rules", func(env Env) (navigation.Agent, error) {
		if env.Rules == nil {
			return nil, nil
		}
		return NewRules(env.Rules.GetRules(), env.logger("rules"))
	})
	r.Register("throttle", func(env Env) (navigation.Agent, error) {
		if env.Navigation == nil {
			return nil, nil
		}
		perSecond, burst := env.Navigation.GetThrottle()
		if perSecond <= 0 {
			return nil, nil
		}
		return NewThrottle(perSecond, burst), nil
	})
	r.Register("cache_bust", func(env Env) (navigation.Agent, error) {
		if env.Navigation == nil {
			return nil, nil
		}
		param, patterns := env.Navigation.GetCacheBust()
		return NewCacheBust(param, patterns)
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named agents and combines them in the given order.
func (r *Registry) Build(names []string, env Env) (*navigation.Combined, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]navigation.Agent, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
		a, err := f(env)
		if err != nil {
			return nil, fmt.Errorf("failed to build agent %q: %w", name, err)
		}
		if a != nil {
			agents = append(agents, a)
		}
	}
	return navigation.Combine(agents...), nil
}

// FromConfig builds the chain listed in the navigation section using the
// stock agents.
func FromConfig(nav *config.NavigationSection, rules *config.RulesSection, logger *logging.Logger) (*navigation.Combined, error) {
	if nav == nil {
		return navigation.Combine(), nil
	}
	return DefaultRegistry().Build(nav.GetAgents(), Env{Navigation: nav, Rules: rules, Logger: logger})
}
