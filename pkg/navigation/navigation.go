package navigation

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/entrhq/waypoint/pkg/logging"
)

// ErrVetoed is returned by Pretend when a leave listener or agent declined
// the navigation.
var ErrVetoed = errors.New("navigation vetoed")

// NativeHistory is the platform history a Navigation drives: a browser's
// window.history, or an in-process stand-in.
type NativeHistory interface {
	// Location returns the absolute URL of the current native entry.
	Location() string
	// State returns the state object of the current native entry.
	State() any
	PushState(data any, title, url string) error
	ReplaceState(data any, title, url string) error
	Go(delta int) error
	Reload() error
}

// NativeListener receives native history events.
type NativeListener interface {
	PopState(state any, href string)
	HashChange(href string)
}

// Attacher is implemented by native histories that deliver events to a
// NativeListener. New attaches the Navigation automatically.
type Attacher interface {
	Attach(l NativeListener)
}

// Navigation is the public navigation surface: the current page, events, and
// serialized Open/Replace/Update requests.
type Navigation struct {
	native  NativeHistory
	history *History
	agent   *Combined
	queue   *queue
	events  *emitter
	logger  *logging.Logger
}

// Option configures a Navigation.
type Option func(*Navigation)

// WithHistory uses h instead of a new History.
func WithHistory(h *History) Option {
	return func(n *Navigation) {
		n.history = h
	}
}

// WithAgents appends agents to the interception chain, in call order.
func WithAgents(agents ...Agent) Option {
	return func(n *Navigation) {
		n.agent = Combine(n.agent, Combine(agents...))
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(n *Navigation) {
		n.logger = l
	}
}

// New creates a Navigation on top of native. The current native entry becomes
// the initial page: its state is re-stamped with an envelope and an enter
// event with WhenInit is emitted to listeners registered through opts.
func New(native NativeHistory, opts ...Option) (*Navigation, error) {
	n := &Navigation{
		native: native,
		agent:  Combine(),
		queue:  newQueue(),
		events: &emitter{},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.history == nil {
		n.history = NewHistory()
	}
	if n.logger == nil {
		n.logger = logging.Discard("navigation")
	}

	if err := n.init(); err != nil {
		return nil, err
	}
	if a, ok := native.(Attacher); ok {
		a.Attach(n)
	}
	return n, nil
}

func (n *Navigation) init() error {
	href := n.native.Location()
	u, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("invalid native location %q: %w", href, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("native location %q is not absolute", href)
	}

	page := n.history.NewEntry(Target{URL: u, Data: unwrapState(n.native.State())}, WhenInit)
	if err := n.native.ReplaceState(n.history.Envelope(page), "", href); err != nil {
		n.history.Discard(page, nil)
		return fmt.Errorf("failed to stamp initial history entry: %w", err)
	}
	n.history.Open(page, WhenInit)
	n.logger.Debugf("initialized at %s as entry %d", href, page.ID())
	n.events.emitEnter(EnterEvent{When: WhenInit, Page: page})
	return nil
}

// History returns the underlying navigation graph.
func (n *Navigation) History() *History {
	return n.history
}

// Current returns the current page.
func (n *Navigation) Current() *Page {
	return n.history.Current()
}

// OnEnter registers fn for enter events and returns its unsubscribe func.
func (n *Navigation) OnEnter(fn func(EnterEvent)) func() {
	return n.events.add(listener{enter: fn})
}

// OnLeave registers fn for leave events. fn may cancel the navigation.
func (n *Navigation) OnLeave(fn func(*LeaveEvent)) func() {
	return n.events.add(listener{leave: fn})
}

// OnStay registers fn for stay events.
func (n *Navigation) OnStay(fn func(StayEvent)) func() {
	return n.events.add(listener{stay: fn})
}

// Watch streams all events until ctx is done. A slow reader loses events
// rather than blocking navigation.
func (n *Navigation) Watch(ctx context.Context, buffer int) <-chan Event {
	return n.events.watch(ctx, buffer, func(ev Event) {
		n.logger.Warnf("event stream full, dropped %s event", ev.Kind())
	})
}

// Open navigates to target, adding a history entry. It returns the new page,
// (nil, nil) when the navigation was vetoed or superseded, or the error that
// made it fail.
func (n *Navigation) Open(ctx context.Context, target any, mutators ...Mutator) (*Page, error) {
	return n.request(ctx, ActionNavigate, target, mutators)
}

// Replace navigates to target in place of the current entry.
func (n *Navigation) Replace(ctx context.Context, target any, mutators ...Mutator) (*Page, error) {
	return n.request(ctx, ActionReplace, target, mutators)
}

// Update replaces the current entry with a copy of its target changed by
// overrides. Params that transfer carry over to the new entry.
func (n *Navigation) Update(ctx context.Context, overrides ...Override) (*Page, error) {
	cur := n.Current()
	if cur == nil {
		return nil, fmt.Errorf("update: no current page")
	}
	t := cur.Target()
	for _, o := range overrides {
		if err := o(&t); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
	}
	return n.request(ctx, ActionReplace, t, nil)
}

// Pretend runs a navigation to target up to and including the agent chain
// without committing it, and calls fn with the resolved page. Native history
// is untouched, no events are emitted, and the page's params receive Stay
// before Pretend returns.
func (n *Navigation) Pretend(ctx context.Context, target any, fn func(*Page) error, mutators ...Mutator) error {
	from := n.Current()
	t, err := n.resolve(from, target)
	if err != nil {
		return err
	}

	to := n.history.NewEntry(t, WhenOpen)
	defer n.history.Discard(to, from)

	if err := n.prepare(from, to, WhenOpen, mutators); err != nil {
		return err
	}
	final, ok, err := RunChain(ctx, n.agent, Request{Action: ActionNavigate, From: from, To: to, Target: t})
	if err != nil {
		return err
	}
	if !ok {
		return ErrVetoed
	}
	to.e.setTarget(final)
	return fn(to)
}

// Go moves through native history by delta. It is not queued behind pending
// Open/Replace requests; the outcome arrives through PopState.
func (n *Navigation) Go(delta int) error {
	return n.native.Go(delta)
}

// Back is Go(-1).
func (n *Navigation) Back() error {
	return n.native.Go(-1)
}

// Forward is Go(1).
func (n *Navigation) Forward() error {
	return n.native.Go(1)
}

// Reload reloads the current native entry.
func (n *Navigation) Reload() error {
	return n.native.Reload()
}

func (n *Navigation) resolve(from *Page, target any) (Target, error) {
	var base *url.URL
	if from != nil {
		base = from.URL()
	}
	return Resolve(base, target)
}

func (n *Navigation) request(ctx context.Context, action Action, target any, mutators []Mutator) (*Page, error) {
	t, err := n.resolve(n.Current(), target)
	if err != nil {
		recordOutcome(action, outcomeFailed)
		n.events.emitStay(StayEvent{At: n.Current(), Reason: err})
		return nil, err
	}

	tk := n.queue.enqueue()
	defer tk.release()

	if err := tk.wait(ctx); err != nil {
		recordOutcome(action, outcomeFailed)
		n.events.emitStay(StayEvent{At: n.Current(), Target: t, Reason: err})
		return nil, err
	}
	if tk.stale() {
		n.logger.Debugf("%s %s superseded before start", action, t.Href())
		recordOutcome(action, outcomeSuperseded)
		n.events.emitStay(StayEvent{At: n.Current(), Target: t, Superseded: true})
		return nil, nil
	}
	return n.attempt(ctx, tk, action, t, mutators)
}

func (n *Navigation) attempt(ctx context.Context, tk *ticket, action Action, t Target, mutators []Mutator) (*Page, error) {
	commit, pre := WhenOpen, WhenPreOpen
	if action == ActionReplace {
		commit, pre = WhenReplace, WhenPreReplace
	}

	from := n.history.Current()
	to := n.history.NewEntry(t, commit)

	if err := n.prepare(from, to, commit, mutators); err != nil {
		return nil, n.fail(action, from, to, t, err)
	}

	if n.events.emitLeave(&LeaveEvent{When: pre, From: from, To: to}) {
		n.logger.Debugf("%s %s canceled by leave listener", action, t.Href())
		n.stay(action, from, to, t, outcomeVetoed)
		return nil, nil
	}

	final, ok, err := RunChain(ctx, n.agent, Request{Action: action, From: from, To: to, Target: t})
	if err != nil {
		return nil, n.fail(action, from, to, t, fmt.Errorf("agent chain: %w", err))
	}
	if !ok {
		n.logger.Debugf("%s %s vetoed by agent", action, t.Href())
		n.stay(action, from, to, t, outcomeVetoed)
		return nil, nil
	}
	to.e.setTarget(final)

	if tk.stale() {
		n.logger.Debugf("%s %s superseded in flight", action, final.Href())
		n.stay(action, from, to, t, outcomeSuperseded)
		return nil, nil
	}

	env := n.history.Envelope(to)
	if action == ActionReplace {
		err = n.native.ReplaceState(env, final.Title, final.Href())
	} else {
		err = n.native.PushState(env, final.Title, final.Href())
	}
	if err != nil {
		return nil, n.fail(action, from, to, t, fmt.Errorf("native history: %w", err))
	}

	if action == ActionReplace {
		n.history.Replace(to, commit)
	} else {
		n.history.Open(to, commit)
	}
	recordOutcome(action, outcomeCommitted)
	n.logger.Infof("%s %s as entry %d", commit, final.Href(), to.ID())
	n.events.emitEnter(EnterEvent{When: commit, Page: to, From: from})
	return to, nil
}

func (n *Navigation) prepare(from, to *Page, when When, mutators []Mutator) error {
	if from != nil {
		if err := from.e.transfer(to.e, when); err != nil {
			return fmt.Errorf("transfer page params: %w", err)
		}
	}
	for _, m := range mutators {
		if err := m(to); err != nil {
			return fmt.Errorf("apply page params: %w", err)
		}
	}
	return nil
}

func (n *Navigation) stay(action Action, from, to *Page, t Target, outcome string) {
	n.history.Discard(to, from)
	recordOutcome(action, outcome)
	n.events.emitStay(StayEvent{
		At:         from,
		To:         to,
		Target:     t,
		Superseded: outcome == outcomeSuperseded,
	})
}

func (n *Navigation) fail(action Action, from, to *Page, t Target, err error) error {
	n.logger.Errorf("%s %s failed: %v", action, t.Href(), err)
	n.history.Discard(to, from)
	recordOutcome(action, outcomeFailed)
	n.events.emitStay(StayEvent{At: from, To: to, Target: t, Reason: err})
	return err
}

// PopState handles native back/forward. A state naming the current entry, or
// a stateless fragment move on the current document, is a hash change.
func (n *Navigation) PopState(state any, href string) {
	cur := n.history.Current()
	if cur != nil {
		if p, ok := n.history.Resolve(state); ok && p == cur {
			n.HashChange(href)
			return
		}
		if state == nil {
			if u, err := url.Parse(href); err == nil && sameDocument(cur.URL(), u) {
				n.HashChange(href)
				return
			}
		}
	}

	page, fresh := n.history.Return(state, href)
	if fresh {
		returnsTotal.WithLabelValues("unknown").Inc()
		n.logger.Warnf("popstate to untracked entry %s, continuing as fresh entry %d", href, page.ID())
		if err := n.native.ReplaceState(n.history.Envelope(page), page.Title(), page.Href()); err != nil {
			n.logger.Errorf("failed to stamp returned entry %d: %v", page.ID(), err)
		}
	} else {
		returnsTotal.WithLabelValues("known").Inc()
		n.logger.Debugf("returned to entry %d at %s", page.ID(), page.Href())
	}
	n.events.emitEnter(EnterEvent{When: WhenReturn, Page: page, From: cur, Discontinuity: fresh})
}

// HashChange records a fragment-only move of the current page.
func (n *Navigation) HashChange(href string) {
	cur := n.history.Current()
	if cur == nil {
		return
	}
	u, err := url.Parse(href)
	if err != nil {
		n.logger.Warnf("ignoring hashchange to invalid url %q: %v", href, err)
		return
	}
	if cur.Href() == u.String() {
		return
	}
	cur.e.setURL(u)
	n.events.emitEnter(EnterEvent{When: WhenEnter, Page: cur, From: cur})
}
