package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Action tells agents which kind of navigation is pending.
type Action string

const (
	ActionNavigate Action = "pre-navigate"
	ActionReplace  Action = "pre-replace"
)

// Request describes a pending navigation to an agent. To is the speculative
// page, already carrying transferred params and those supplied with With.
type Request struct {
	Action Action
	From   *Page
	To     *Page
	Target Target
}

// Agent intercepts pending navigations. It forwards by calling cur.Next,
// optionally with overrides, before returning. Returning without calling Next
// vetoes the navigation; returning an error fails it.
type Agent interface {
	Intercept(ctx context.Context, cur *Cursor, req Request) error
}

// AgentFunc adapts a function to Agent.
type AgentFunc func(ctx context.Context, cur *Cursor, req Request) error

// Intercept calls f.
func (f AgentFunc) Intercept(ctx context.Context, cur *Cursor, req Request) error {
	return f(ctx, cur, req)
}

// Override rewrites part of the target handed to the next agent. Fields an
// override does not touch fall through unchanged.
type Override func(t *Target) error

// RedirectTo resolves ref against the current target URL and uses it instead.
func RedirectTo(ref string) Override {
	return func(t *Target) error {
		u, err := Resolve(t.URL, ref)
		if err != nil {
			return err
		}
		t.URL = u.URL
		return nil
	}
}

// RetitleTo replaces the target title.
func RetitleTo(title string) Override {
	return func(t *Target) error {
		t.Title = title
		return nil
	}
}

// WithData replaces the target history data.
func WithData(data any) Override {
	return func(t *Target) error {
		t.Data = data
		return nil
	}
}

func replaceTarget(with Target) Override {
	return func(t *Target) error {
		*t = with.clone()
		return nil
	}
}

var (
	errNextTwice   = errors.New("navigation: agent called Next more than once")
	errChainClosed = errors.New("navigation: Next called after the agent chain finished")
)

// Cursor is an agent's position in the chain.
type Cursor struct {
	agents []Agent
	index  int
	req    Request
	run    *chainRun
	called bool
	done   func(ctx context.Context, t Target) error
}

type chainRun struct {
	closed atomic.Bool
}

// Request returns the request as seen at this position, including overrides
// made by earlier agents.
func (c *Cursor) Request() Request {
	return c.req
}

// Next applies overrides and hands the request to the next agent. When no
// agent is left, the navigation commits with the resulting target.
func (c *Cursor) Next(ctx context.Context, overrides ...Override) error {
	if c.run.closed.Load() {
		return errChainClosed
	}
	if c.called {
		return errNextTwice
	}
	c.called = true

	t := c.req.Target.clone()
	for _, o := range overrides {
		if err := o(&t); err != nil {
			return fmt.Errorf("apply agent override: %w", err)
		}
	}

	if c.index >= len(c.agents) {
		return c.done(ctx, t)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := c.req
	req.Target = t
	next := &Cursor{agents: c.agents, index: c.index + 1, req: req, run: c.run, done: c.done}
	return c.agents[c.index].Intercept(ctx, next, req)
}

// Combined runs a fixed list of agents, in order, as one agent.
type Combined struct {
	agents []Agent
}

// Combine joins agents into one Combined agent. Nil agents are skipped and
// nested Combined agents are flattened.
func Combine(agents ...Agent) *Combined {
	c := &Combined{}
	for _, a := range agents {
		switch x := a.(type) {
		case nil:
		case *Combined:
			if x != nil {
				c.agents = append(c.agents, x.agents...)
			}
		default:
			c.agents = append(c.agents, a)
		}
	}
	return c
}

// Len returns the number of agents.
func (c *Combined) Len() int {
	return len(c.agents)
}

// Intercept runs the combined agents and forwards the last target they
// produced to outer.
func (c *Combined) Intercept(ctx context.Context, outer *Cursor, req Request) error {
	inner := &Cursor{
		agents: c.agents,
		req:    req,
		run:    outer.run,
		done: func(ctx context.Context, t Target) error {
			return outer.Next(ctx, replaceTarget(t))
		},
	}
	return inner.Next(ctx)
}

// RunChain runs agent for req. It reports the final target and whether the
// chain reached its end.
func RunChain(ctx context.Context, agent Agent, req Request) (Target, bool, error) {
	var (
		final     Target
		committed bool
	)

	run := &chainRun{}
	defer run.closed.Store(true)

	var agents []Agent
	if agent != nil {
		agents = []Agent{agent}
	}
	cur := &Cursor{
		agents: agents,
		req:    req,
		run:    run,
		done: func(_ context.Context, t Target) error {
			final = t
			committed = true
			return nil
		},
	}

	if err := cur.Next(ctx); err != nil {
		return req.Target, false, err
	}
	if !committed {
		return req.Target, false, nil
	}
	return final, true, nil
}
