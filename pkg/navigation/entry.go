package navigation

import (
	"net/url"
	"sync"
)

// entry is one node of the navigation graph. Links are guarded by the owning
// History's lock; everything else by e.mu.
type entry struct {
	id      int64
	history *History
	page    *Page

	prev, next *entry

	mu       sync.Mutex
	target   Target
	when     When
	visited  bool
	finished bool // forgotten or discarded
	keys     []any
	handles  map[any]any
}

func newEntry(h *History, id int64, t Target, when When) *entry {
	e := &entry{id: id, history: h, target: t, when: when}
	e.page = &Page{e: e}
	return e
}

func (e *entry) transition() When {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.when
}

func (e *entry) getTarget() Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target.clone()
}

func (e *entry) setTarget(t Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = t.clone()
}

func (e *entry) setURL(u *url.URL) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target.URL = u
}

func (e *entry) handle(key any) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[key]
	return h, ok
}

// store records h under key unless a handle is already present or the entry
// is finished. It returns the handle that ends up stored.
func (e *entry) store(key, h any) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return nil, false
	}
	if existing, ok := e.handles[key]; ok {
		return existing, false
	}
	if e.handles == nil {
		e.handles = make(map[any]any)
	}
	e.handles[key] = h
	e.keys = append(e.keys, key)
	return h, true
}

// snapshot returns handles in insertion order.
func (e *entry) snapshot() []any {
	e.mu.Lock()
	defer e.mu.Unlock()

	hs := make([]any, 0, len(e.keys))
	for _, k := range e.keys {
		hs = append(hs, e.handles[k])
	}
	return hs
}

func (e *entry) isFinished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

func (e *entry) enter(when When) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.visited = true
	e.when = when
	e.mu.Unlock()

	for _, h := range e.snapshot() {
		if x, ok := h.(Enterer); ok {
			x.Enter(e.page, when)
		}
	}
}

func (e *entry) leave() {
	if e.isFinished() {
		return
	}
	for _, h := range e.snapshot() {
		if x, ok := h.(Leaver); ok {
			x.Leave()
		}
	}
}

// stay finishes a speculative entry whose navigation did not commit.
func (e *entry) stay(at *Page) {
	hs := e.finish()
	for _, h := range hs {
		if x, ok := h.(Stayer); ok {
			x.Stay(at)
		}
	}
}

// forget finishes a pruned entry. Handles hear about it at most once.
func (e *entry) forget() {
	hs := e.finish()
	for _, h := range hs {
		if x, ok := h.(Forgetter); ok {
			x.Forget()
		}
	}
}

// finish marks the entry finished and hands back its handles the first time.
func (e *entry) finish() []any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return nil
	}
	e.finished = true
	hs := make([]any, 0, len(e.keys))
	for _, k := range e.keys {
		hs = append(hs, e.handles[k])
	}
	e.handles = nil
	e.keys = nil
	return hs
}

func (e *entry) transfer(to *entry, when When) error {
	for _, h := range e.snapshot() {
		x, ok := h.(Transferer)
		if !ok {
			continue
		}
		if err := x.Transfer(to.page, when); err != nil {
			return err
		}
	}
	return nil
}
