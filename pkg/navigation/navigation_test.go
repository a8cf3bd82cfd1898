package navigation

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nativeCall struct {
	data  any
	title string
	url   string
}

// fakeNative records every call and tracks location and state the way a
// browser would after pushState/replaceState.
type fakeNative struct {
	mu       sync.Mutex
	href     string
	state    any
	pushes   []nativeCall
	replaces []nativeCall
	gos      []int
	reloads  int
	pushErr  error
}

func newFakeNative(href string, state any) *fakeNative {
	return &fakeNative{href: href, state: state}
}

func (f *fakeNative) Location() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.href
}

func (f *fakeNative) State() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeNative) PushState(data any, title, u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, nativeCall{data: data, title: title, url: u})
	f.href, f.state = u, data
	return nil
}

func (f *fakeNative) ReplaceState(data any, title, u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces = append(f.replaces, nativeCall{data: data, title: title, url: u})
	f.href, f.state = u, data
	return nil
}

func (f *fakeNative) Go(delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gos = append(f.gos, delta)
	return nil
}

func (f *fakeNative) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *fakeNative) pushCalls() []nativeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nativeCall(nil), f.pushes...)
}

func (f *fakeNative) replaceCalls() []nativeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nativeCall(nil), f.replaces...)
}

// probe records lifecycle calls made on probe handles.
type probe struct {
	mu    sync.Mutex
	calls []string
}

func (p *probe) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *probe) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (p *probe) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type probeHandle struct {
	p     *probe
	value string
}

func (h *probeHandle) Get() string { return h.value }

func (h *probeHandle) Refine(v string) error {
	h.p.record("refine")
	h.value = v
	return nil
}

func (h *probeHandle) Enter(_ *Page, when When) { h.p.record("enter:" + string(when)) }
func (h *probeHandle) Leave()                   { h.p.record("leave") }
func (h *probeHandle) Stay(*Page)               { h.p.record("stay") }
func (h *probeHandle) Forget()                  { h.p.record("forget") }

func newProbeParam(p *probe) *Param[string, string] {
	return NewParam("probe", func(_ *Page, when When, v string) (Handle[string, string], error) {
		p.record("create:" + string(when))
		return &probeHandle{p: p, value: v}, nil
	})
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func newTestNavigation(t *testing.T, opts ...Option) (*Navigation, *fakeNative) {
	t.Helper()
	native := newFakeNative("http://localhost/index", "initial")
	nav, err := New(native, opts...)
	require.NoError(t, err)
	return nav, native
}

func queueTail(n *Navigation) chan struct{} {
	n.queue.mu.Lock()
	defer n.queue.mu.Unlock()
	return n.queue.tail
}

func TestNew(t *testing.T) {
	t.Run("stamps initial entry", func(t *testing.T) {
		nav, native := newTestNavigation(t)

		cur := nav.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "http://localhost/index", cur.Href())
		assert.Equal(t, "initial", cur.Data())
		assert.True(t, cur.Visited())
		assert.True(t, cur.Current())

		replaces := native.replaceCalls()
		require.Len(t, replaces, 1)
		env, ok := DecodeEnvelope(replaces[0].data)
		require.True(t, ok)
		assert.Equal(t, nav.History().Session(), env.Meta.Session)
		assert.Equal(t, cur.ID(), env.Meta.ID)
		assert.Equal(t, "initial", env.Data)
	})

	t.Run("unwraps envelope left by earlier session", func(t *testing.T) {
		old := Envelope{Meta: EnvelopeMeta{Session: "stale", ID: 9}, Data: "kept"}
		nav, err := New(newFakeNative("http://localhost/x", old))
		require.NoError(t, err)
		assert.Equal(t, "kept", nav.Current().Data())
	})

	t.Run("rejects relative location", func(t *testing.T) {
		_, err := New(newFakeNative("/relative", nil))
		assert.Error(t, err)
	})
}

func TestOpen_PushesEnvelope(t *testing.T) {
	nav, native := newTestNavigation(t)
	first := nav.Current()

	page, err := nav.Open(context.Background(), Target{
		URL:   mustURL(t, "/other"),
		Data:  "updated",
		Title: "t",
	})
	require.NoError(t, err)
	require.NotNil(t, page)

	pushes := native.pushCalls()
	require.Len(t, pushes, 1)
	assert.Equal(t, "t", pushes[0].title)
	assert.Equal(t, "http://localhost/other", pushes[0].url)

	env, ok := DecodeEnvelope(pushes[0].data)
	require.True(t, ok)
	assert.Equal(t, "updated", env.Data)
	assert.Equal(t, page.ID(), env.Meta.ID)

	assert.Same(t, page, nav.Current())
	assert.False(t, first.Current())

	trail, index := nav.History().Trail()
	assert.Equal(t, []*Page{first, page}, trail)
	assert.Equal(t, 1, index)
}

func TestOpen_EventOrder(t *testing.T) {
	nav, _ := newTestNavigation(t)

	var events []string
	nav.OnLeave(func(e *LeaveEvent) { events = append(events, "leave:"+string(e.When)) })
	nav.OnEnter(func(e EnterEvent) { events = append(events, "enter:"+string(e.When)) })
	nav.OnStay(func(StayEvent) { events = append(events, "stay") })

	_, err := nav.Open(context.Background(), "/a")
	require.NoError(t, err)
	_, err = nav.Replace(context.Background(), "/b")
	require.NoError(t, err)

	assert.Equal(t, []string{"leave:pre-open", "enter:open", "leave:pre-replace", "enter:replace"}, events)
}

func TestOpen_LeaveCanceled(t *testing.T) {
	nav, native := newTestNavigation(t)
	first := nav.Current()
	p := &probe{}
	param := newProbeParam(p)

	nav.OnLeave(func(e *LeaveEvent) { e.Cancel() })
	var stays []StayEvent
	nav.OnStay(func(e StayEvent) { stays = append(stays, e) })

	page, err := nav.Open(context.Background(), "/other", With(param, "x"))
	assert.NoError(t, err)
	assert.Nil(t, page)
	assert.Empty(t, native.pushCalls())
	assert.Same(t, first, nav.Current())

	require.Len(t, stays, 1)
	assert.Same(t, first, stays[0].At)
	require.NotNil(t, stays[0].To)
	assert.Equal(t, "http://localhost/other", stays[0].To.Href())
	assert.False(t, stays[0].Superseded)
	assert.NoError(t, stays[0].Reason)

	assert.Equal(t, []string{"create:open", "stay"}, p.all())
	assert.Nil(t, nav.History().Pending())
}

func TestOpen_AgentChain(t *testing.T) {
	tests := []struct {
		name      string
		agents    []Agent
		wantPage  bool
		wantErr   bool
		wantURL   string
		wantTitle string
		wantData  any
	}{
		{
			name: "overrides merge in registration order",
			agents: []Agent{
				AgentFunc(func(ctx context.Context, cur *Cursor, req Request) error {
					return cur.Next(ctx, RedirectTo("/redirected"))
				}),
				AgentFunc(func(ctx context.Context, cur *Cursor, req Request) error {
					if req.Target.URL.Path != "/redirected" {
						return errors.New("redirect not visible downstream")
					}
					return cur.Next(ctx, RetitleTo("second"))
				}),
			},
			wantPage:  true,
			wantURL:   "http://localhost/redirected",
			wantTitle: "second",
			wantData:  "payload",
		},
		{
			name: "agent vetoes by not forwarding",
			agents: []Agent{
				AgentFunc(func(context.Context, *Cursor, Request) error { return nil }),
			},
		},
		{
			name: "agent error fails navigation",
			agents: []Agent{
				AgentFunc(func(context.Context, *Cursor, Request) error { return errors.New("boom") }),
			},
			wantErr: true,
		},
		{
			name: "calling next twice is an error",
			agents: []Agent{
				AgentFunc(func(ctx context.Context, cur *Cursor, req Request) error {
					if err := cur.Next(ctx); err != nil {
						return err
					}
					return cur.Next(ctx)
				}),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, native := newTestNavigation(t, WithAgents(tt.agents...))
			first := nav.Current()

			page, err := nav.Open(context.Background(), Target{URL: mustURL(t, "/start"), Data: "payload"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			if !tt.wantPage {
				assert.Nil(t, page)
				assert.Empty(t, native.pushCalls())
				assert.Same(t, first, nav.Current())
				return
			}

			require.NotNil(t, page)
			pushes := native.pushCalls()
			require.Len(t, pushes, 1)
			assert.Equal(t, tt.wantURL, pushes[0].url)
			assert.Equal(t, tt.wantTitle, pushes[0].title)
			assert.Equal(t, tt.wantURL, page.Href())
			assert.Equal(t, tt.wantData, page.Data())
		})
	}
}

func TestOpen_AgentSeesSpeculativePage(t *testing.T) {
	p := &probe{}
	param := newProbeParam(p)

	var seen string
	agent := AgentFunc(func(ctx context.Context, cur *Cursor, req Request) error {
		v, ok := Get(req.To, param)
		if ok {
			seen = v
		}
		assert.Equal(t, ActionNavigate, req.Action)
		assert.False(t, req.To.Visited())
		return cur.Next(ctx)
	})
	nav, _ := newTestNavigation(t, WithAgents(agent))

	_, err := nav.Open(context.Background(), "/a", With(param, "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", seen)
}

func TestOpen_Supersession(t *testing.T) {
	entered := make(chan struct{}, 1)
	block := make(chan struct{})
	agent := AgentFunc(func(ctx context.Context, cur *Cursor, req Request) error {
		if req.Target.URL.Path == "/a" {
			entered <- struct{}{}
			<-block
		}
		return cur.Next(ctx)
	})
	nav, native := newTestNavigation(t, WithAgents(agent))

	var mu sync.Mutex
	var stays []StayEvent
	nav.OnStay(func(e StayEvent) {
		mu.Lock()
		defer mu.Unlock()
		stays = append(stays, e)
	})

	type result struct {
		page *Page
		err  error
	}
	open := func(target string) <-chan result {
		ch := make(chan result, 1)
		go func() {
			page, err := nav.Open(context.Background(), target)
			ch <- result{page, err}
		}()
		return ch
	}

	resA := open("/a")
	<-entered

	tail := queueTail(nav)
	resB := open("/b")
	require.Eventually(t, func() bool { return queueTail(nav) != tail }, time.Second, time.Millisecond)

	tail = queueTail(nav)
	resC := open("/c")
	require.Eventually(t, func() bool { return queueTail(nav) != tail }, time.Second, time.Millisecond)

	close(block)

	a, b, c := <-resA, <-resB, <-resC
	assert.NoError(t, a.err)
	assert.Nil(t, a.page)
	assert.NoError(t, b.err)
	assert.Nil(t, b.page)
	require.NoError(t, c.err)
	require.NotNil(t, c.page)
	assert.Equal(t, "http://localhost/c", c.page.Href())

	pushes := native.pushCalls()
	require.Len(t, pushes, 1)
	assert.Equal(t, "http://localhost/c", pushes[0].url)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stays, 2)
	for _, s := range stays {
		assert.True(t, s.Superseded)
	}
}

func TestOpen_NativeFailure(t *testing.T) {
	nav, native := newTestNavigation(t)
	first := nav.Current()
	native.pushErr = errors.New("quota exceeded")

	p := &probe{}
	param := newProbeParam(p)
	var stays []StayEvent
	nav.OnStay(func(e StayEvent) { stays = append(stays, e) })

	page, err := nav.Open(context.Background(), "/a", With(param, "v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Nil(t, page)
	assert.Same(t, first, nav.Current())

	require.Len(t, stays, 1)
	assert.ErrorContains(t, stays[0].Reason, "quota exceeded")
	assert.Equal(t, 1, p.count("stay"))
	assert.Equal(t, 0, p.count("forget"))
}

func TestOpen_InvalidTarget(t *testing.T) {
	nav, _ := newTestNavigation(t)
	var stays []StayEvent
	nav.OnStay(func(e StayEvent) { stays = append(stays, e) })

	_, err := nav.Open(context.Background(), 42)
	assert.Error(t, err)
	require.Len(t, stays, 1)
	assert.Error(t, stays[0].Reason)
}

func TestOpen_ForwardPruning(t *testing.T) {
	nav, _ := newTestNavigation(t)
	ctx := context.Background()
	p := &probe{}
	param := newProbeParam(p)

	a, err := nav.Open(ctx, "/a")
	require.NoError(t, err)
	b, err := nav.Open(ctx, "/b", With(param, "b"))
	require.NoError(t, err)

	nav.PopState(nav.History().Envelope(a), a.Href())
	assert.Same(t, a, nav.Current())
	assert.Equal(t, 1, p.count("leave"))

	c, err := nav.Open(ctx, "/c")
	require.NoError(t, err)

	assert.Equal(t, 1, p.count("forget"))
	_, ok := nav.History().Lookup(b.ID())
	assert.False(t, ok)
	assert.Equal(t, 3, nav.History().Len())

	trail, index := nav.History().Trail()
	require.Len(t, trail, 3)
	assert.Same(t, a, trail[1])
	assert.Same(t, c, trail[2])
	assert.Equal(t, 2, index)

	// A stale envelope for the pruned entry now starts a fresh page.
	var enters []EnterEvent
	nav.OnEnter(func(e EnterEvent) { enters = append(enters, e) })
	nav.PopState(Envelope{Meta: EnvelopeMeta{Session: nav.History().Session(), ID: b.ID()}, Data: "b-data"}, b.Href())
	require.Len(t, enters, 1)
	assert.True(t, enters[0].Discontinuity)
	assert.NotEqual(t, b.ID(), enters[0].Page.ID())
	assert.Equal(t, 1, p.count("forget"))
	assert.Zero(t, p.count("enter:return"))
	assert.Equal(t, []string{"create:open", "enter:open", "leave", "forget"}, p.all())
}

func TestPopState_FreshEntryIsLinked(t *testing.T) {
	t.Run("pruned by a later open", func(t *testing.T) {
		nav, _ := newTestNavigation(t)
		ctx := context.Background()
		start := nav.Current()
		p := &probe{}
		param := newProbeParam(p)

		a, err := nav.Open(ctx, "/a")
		require.NoError(t, err)

		nav.PopState(nil, "http://localhost/foreign")
		fresh := nav.Current()
		require.NotSame(t, a, fresh)
		_, err = Put(fresh, param, "fresh")
		require.NoError(t, err)

		trail, index := nav.History().Trail()
		require.Len(t, trail, 3)
		assert.Same(t, a, trail[1])
		assert.Same(t, fresh, trail[2])
		assert.Equal(t, 2, index)

		nav.PopState(nav.History().Envelope(start), start.Href())
		assert.Same(t, start, nav.Current())
		assert.Equal(t, 1, p.count("leave"))

		_, err = nav.Open(ctx, "/b")
		require.NoError(t, err)

		_, ok := nav.History().Lookup(fresh.ID())
		assert.False(t, ok)
		_, ok = nav.History().Lookup(a.ID())
		assert.False(t, ok)
		assert.Equal(t, 1, p.count("forget"))
		assert.Equal(t, 2, nav.History().Len())
	})

	t.Run("prunes forward history", func(t *testing.T) {
		nav, _ := newTestNavigation(t)
		ctx := context.Background()
		p := &probe{}
		param := newProbeParam(p)

		a, err := nav.Open(ctx, "/a")
		require.NoError(t, err)
		b, err := nav.Open(ctx, "/b", With(param, "b"))
		require.NoError(t, err)
		nav.PopState(nav.History().Envelope(a), a.Href())

		nav.PopState(nil, "http://localhost/foreign")
		fresh := nav.Current()

		_, ok := nav.History().Lookup(b.ID())
		assert.False(t, ok)
		assert.Equal(t, 1, p.count("forget"))

		trail, index := nav.History().Trail()
		require.Len(t, trail, 3)
		assert.Same(t, a, trail[1])
		assert.Same(t, fresh, trail[2])
		assert.Equal(t, 2, index)
	})
}

func TestReplace(t *testing.T) {
	nav, native := newTestNavigation(t)
	ctx := context.Background()
	p := &probe{}
	param := newProbeParam(p)

	a, err := nav.Open(ctx, "/a", With(param, "a"))
	require.NoError(t, err)

	r, err := nav.Replace(ctx, "/r")
	require.NoError(t, err)

	assert.Len(t, native.pushCalls(), 1)
	replaces := native.replaceCalls()
	require.Len(t, replaces, 2)
	assert.Equal(t, "http://localhost/r", replaces[1].url)

	assert.Equal(t, 2, nav.History().Len())
	_, ok := nav.History().Lookup(a.ID())
	assert.False(t, ok)
	assert.Same(t, r, nav.Current())
	assert.Equal(t, []string{"create:open", "enter:open", "leave", "forget"}, p.all())
}

func TestUpdate(t *testing.T) {
	scroll := NewValueParam[int]("scroll", true)
	nav, native := newTestNavigation(t)
	ctx := context.Background()

	a, err := nav.Open(ctx, "/a", With(scroll, 120))
	require.NoError(t, err)

	updated, err := nav.Update(ctx, WithData("draft"), RetitleTo("edited"))
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, a.Href(), updated.Href())
	assert.Equal(t, "draft", updated.Data())
	assert.Equal(t, "edited", updated.Title())

	v, ok := Get(updated, scroll)
	assert.True(t, ok)
	assert.Equal(t, 120, v)

	replaces := native.replaceCalls()
	require.Len(t, replaces, 2)
	env, ok := DecodeEnvelope(replaces[1].data)
	require.True(t, ok)
	assert.Equal(t, "draft", env.Data)
}

func TestParams(t *testing.T) {
	t.Run("put refines existing handle", func(t *testing.T) {
		h := NewHistory()
		page := h.NewEntry(Target{URL: mustURL(t, "http://host/")}, WhenOpen)
		p := &probe{}
		param := newProbeParam(p)

		v, err := Put(page, param, "one")
		require.NoError(t, err)
		assert.Equal(t, "one", v)

		v, err = Put(page, param, "two")
		require.NoError(t, err)
		assert.Equal(t, "two", v)

		assert.Equal(t, 1, p.count("create:open"))
		assert.Equal(t, 1, p.count("refine"))

		got, ok := Get(page, param)
		assert.True(t, ok)
		assert.Equal(t, "two", got)
	})

	t.Run("get on absent param", func(t *testing.T) {
		h := NewHistory()
		page := h.NewEntry(Target{URL: mustURL(t, "http://host/")}, WhenOpen)
		_, ok := Get(page, NewValueParam[string]("absent", false))
		assert.False(t, ok)
	})

	t.Run("put on discarded page fails", func(t *testing.T) {
		h := NewHistory()
		page := h.NewEntry(Target{URL: mustURL(t, "http://host/")}, WhenOpen)
		h.Discard(page, nil)

		_, err := Put(page, NewValueParam[int]("n", false), 1)
		assert.Error(t, err)
	})

	t.Run("carry follows navigation", func(t *testing.T) {
		carried := NewValueParam[int]("carried", true)
		dropped := NewValueParam[int]("dropped", false)
		nav, _ := newTestNavigation(t)
		ctx := context.Background()

		_, err := nav.Open(ctx, "/a", With(carried, 1), With(dropped, 2))
		require.NoError(t, err)
		next, err := nav.Open(ctx, "/b")
		require.NoError(t, err)

		v, ok := Get(next, carried)
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		_, ok = Get(next, dropped)
		assert.False(t, ok)
	})

	t.Run("create error fails navigation", func(t *testing.T) {
		broken := NewParam("broken", func(*Page, When, int) (Handle[int, int], error) {
			return nil, errors.New("no")
		})
		nav, native := newTestNavigation(t)

		page, err := nav.Open(context.Background(), "/a", With(broken, 1))
		assert.ErrorContains(t, err, "broken")
		assert.Nil(t, page)
		assert.Empty(t, native.pushCalls())
	})
}

func TestPopState(t *testing.T) {
	t.Run("known entry", func(t *testing.T) {
		nav, _ := newTestNavigation(t)
		first := nav.Current()
		_, err := nav.Open(context.Background(), "/a")
		require.NoError(t, err)

		var enters []EnterEvent
		nav.OnEnter(func(e EnterEvent) { enters = append(enters, e) })

		// Browsers hand state back as decoded JSON.
		state := map[string]any{
			"waypoint": map[string]any{"session": nav.History().Session(), "id": float64(first.ID())},
			"data":     "initial",
		}
		nav.PopState(state, first.Href())

		assert.Same(t, first, nav.Current())
		require.Len(t, enters, 1)
		assert.Equal(t, WhenReturn, enters[0].When)
		assert.False(t, enters[0].Discontinuity)
	})

	t.Run("unknown state starts fresh entry", func(t *testing.T) {
		nav, native := newTestNavigation(t)
		var enters []EnterEvent
		nav.OnEnter(func(e EnterEvent) { enters = append(enters, e) })

		nav.PopState("foreign", "http://localhost/elsewhere")

		require.Len(t, enters, 1)
		assert.True(t, enters[0].Discontinuity)
		page := enters[0].Page
		assert.Equal(t, "foreign", page.Data())
		assert.Equal(t, "http://localhost/elsewhere", page.Href())
		assert.Same(t, page, nav.Current())

		replaces := native.replaceCalls()
		require.Len(t, replaces, 2)
		env, ok := DecodeEnvelope(replaces[1].data)
		require.True(t, ok)
		assert.Equal(t, page.ID(), env.Meta.ID)
	})

	t.Run("fragment only move is a hash change", func(t *testing.T) {
		nav, _ := newTestNavigation(t)
		first := nav.Current()
		var enters []EnterEvent
		nav.OnEnter(func(e EnterEvent) { enters = append(enters, e) })

		nav.PopState(nil, "http://localhost/index#top")

		assert.Same(t, first, nav.Current())
		assert.Equal(t, "http://localhost/index#top", first.Href())
		require.Len(t, enters, 1)
		assert.Equal(t, WhenEnter, enters[0].When)
	})
}

func TestHashChange(t *testing.T) {
	nav, _ := newTestNavigation(t)
	var enters []EnterEvent
	nav.OnEnter(func(e EnterEvent) { enters = append(enters, e) })

	nav.HashChange("http://localhost/index#a")
	nav.HashChange("http://localhost/index#a")

	assert.Len(t, enters, 1)
	assert.Equal(t, "a", nav.Current().URL().Fragment)
}

func TestPretend(t *testing.T) {
	t.Run("runs fn without committing", func(t *testing.T) {
		nav, native := newTestNavigation(t)
		first := nav.Current()
		p := &probe{}
		param := newProbeParam(p)

		var events int
		nav.OnEnter(func(EnterEvent) { events++ })
		nav.OnLeave(func(*LeaveEvent) { events++ })

		var href string
		err := nav.Pretend(context.Background(), "/preview", func(page *Page) error {
			href = page.Href()
			v, ok := Get(page, param)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
			return nil
		}, With(param, "v"))
		require.NoError(t, err)

		assert.Equal(t, "http://localhost/preview", href)
		assert.Zero(t, events)
		assert.Empty(t, native.pushCalls())
		assert.Same(t, first, nav.Current())
		assert.Equal(t, 1, p.count("stay"))
	})

	t.Run("vetoed", func(t *testing.T) {
		veto := AgentFunc(func(context.Context, *Cursor, Request) error { return nil })
		nav, _ := newTestNavigation(t, WithAgents(veto))

		called := false
		err := nav.Pretend(context.Background(), "/preview", func(*Page) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrVetoed)
		assert.False(t, called)
	})
}

func TestGoDelegates(t *testing.T) {
	nav, native := newTestNavigation(t)
	require.NoError(t, nav.Back())
	require.NoError(t, nav.Forward())
	require.NoError(t, nav.Go(-2))
	require.NoError(t, nav.Reload())

	assert.Equal(t, []int{-1, 1, -2}, native.gos)
	assert.Equal(t, 1, native.reloads)
}

func TestWatch(t *testing.T) {
	nav, _ := newTestNavigation(t)
	ctx, cancel := context.WithCancel(context.Background())

	events := nav.Watch(ctx, 1)
	_, err := nav.Open(context.Background(), "/a")
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "leave", ev.Kind())

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, time.Millisecond)
}

func TestUnsubscribe(t *testing.T) {
	nav, _ := newTestNavigation(t)
	calls := 0
	off := nav.OnEnter(func(EnterEvent) { calls++ })

	_, err := nav.Open(context.Background(), "/a")
	require.NoError(t, err)
	off()
	off()
	_, err = nav.Open(context.Background(), "/b")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}
