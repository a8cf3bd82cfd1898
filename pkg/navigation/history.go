package navigation

import (
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// History owns the navigation graph: entries linked in the order they were
// navigated, indexed by id, with one current entry.
//
// History is safe for concurrent use. Param callbacks run after the graph
// lock is released, so they may call Put on other pages.
type History struct {
	mu      sync.Mutex
	session string
	seq     int64
	entries map[int64]*entry
	current *entry
	future  *entry
}

// NewHistory creates an empty history with a fresh session scope.
func NewHistory() *History {
	return &History{
		session: uuid.NewString(),
		entries: make(map[int64]*entry),
	}
}

// Session returns the scope id written into every envelope.
func (h *History) Session() string {
	return h.session
}

// NewEntry allocates the next entry for t, detached from the graph. when is
// the transition the entry is being prepared for; params created on it see
// that value. The entry is remembered as pending until it is opened,
// replaced in or discarded.
func (h *History) NewEntry(t Target, when When) *Page {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.allocLocked(t, when)
	h.future = e
	return e.page
}

func (h *History) allocLocked(t Target, when When) *entry {
	h.seq++
	return newEntry(h, h.seq, t.clone(), when)
}

// Pending returns the entry most recently allocated and not yet settled.
func (h *History) Pending() *Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.future == nil {
		return nil
	}
	return h.future.page
}

// Current returns the current page, or nil before the first entry is opened.
func (h *History) Current() *Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	return h.current.page
}

func (h *History) isCurrent(e *entry) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current == e
}

// Lookup finds a tracked entry by id.
func (h *History) Lookup(id int64) (*Page, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[id]
	if !ok {
		return nil, false
	}
	return e.page, true
}

// Len returns the number of tracked entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Envelope wraps p's data for native history.
func (h *History) Envelope(p *Page) Envelope {
	return Envelope{
		Meta: EnvelopeMeta{Session: h.session, ID: p.e.id},
		Data: p.Data(),
	}
}

// Trail returns the pages linked to the current one, oldest first, and the
// index of the current page within them.
func (h *History) Trail() ([]*Page, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return nil, -1
	}
	head := h.current
	for head.prev != nil {
		head = head.prev
	}
	var pages []*Page
	index := -1
	for e := head; e != nil; e = e.next {
		if e == h.current {
			index = len(pages)
		}
		pages = append(pages, e.page)
	}
	return pages, index
}

// Open makes to the current entry after the current one. Forward history is
// pruned: every successor of the current entry is forgotten and untracked.
func (h *History) Open(to *Page, when When) {
	h.mu.Lock()
	cur := h.current
	var pruned []*entry
	if cur != nil {
		pruned = h.unlinkForwardLocked(cur)
		cur.next = to.e
	}
	to.e.prev = cur
	to.e.next = nil
	h.track(to.e)
	h.mu.Unlock()

	for _, n := range pruned {
		n.forget()
	}
	if cur != nil {
		cur.leave()
	}
	to.e.enter(when)
}

// unlinkForwardLocked untracks every successor of e and returns them, nearest
// first. Callers hold h.mu and forget the result after unlocking.
func (h *History) unlinkForwardLocked(e *entry) []*entry {
	var pruned []*entry
	for n := e.next; n != nil; n = n.next {
		pruned = append(pruned, n)
	}
	for _, n := range pruned {
		delete(h.entries, n.id)
		n.prev, n.next = nil, nil
	}
	e.next = nil
	return pruned
}

// Replace puts by in the current entry's place. The old entry is left and then
// forgotten; forward history is untouched.
func (h *History) Replace(by *Page, when When) {
	h.mu.Lock()
	cur := h.current
	if cur != nil {
		by.e.prev, by.e.next = cur.prev, cur.next
		if cur.prev != nil {
			cur.prev.next = by.e
		}
		if cur.next != nil {
			cur.next.prev = by.e
		}
		cur.prev, cur.next = nil, nil
		delete(h.entries, cur.id)
	}
	h.track(by.e)
	h.mu.Unlock()

	if cur != nil {
		cur.leave()
		cur.forget()
	}
	by.e.enter(when)
}

// track records e as current. Callers hold h.mu.
func (h *History) track(e *entry) {
	h.entries[e.id] = e
	h.current = e
	if h.future == e {
		h.future = nil
	}
	historyEntries.Set(float64(len(h.entries)))
}

// Resolve finds the tracked entry a native state refers to.
func (h *History) Resolve(state any) (*Page, bool) {
	env, ok := DecodeEnvelope(state)
	if !ok || env.Meta.Session != h.session {
		return nil, false
	}
	return h.Lookup(env.Meta.ID)
}

// Return switches to the entry native back/forward landed on. The outgoing
// entry is left, not forgotten. If state does not name a tracked entry, a
// fresh entry is created from the state's data at face value and returned
// with fresh set. The fresh entry is linked after the outgoing one and the
// outgoing entry's forward history is pruned.
func (h *History) Return(state any, href string) (page *Page, fresh bool) {
	target, ok := h.Resolve(state)

	h.mu.Lock()
	cur := h.current
	var (
		e      *entry
		pruned []*entry
	)
	if ok {
		e = target.e
	} else {
		u, err := url.Parse(href)
		if err != nil {
			u = &url.URL{}
		}
		e = h.allocLocked(Target{URL: u, Data: unwrapState(state)}, WhenReturn)
		fresh = true
		if cur != nil {
			pruned = h.unlinkForwardLocked(cur)
			cur.next = e
		}
		e.prev = cur
		e.next = nil
	}
	h.track(e)
	h.mu.Unlock()

	for _, n := range pruned {
		n.forget()
	}
	if cur != nil && cur != e {
		cur.leave()
	}
	e.enter(WhenReturn)
	return e.page, fresh
}

// Discard drops a speculative entry that never became current; its params
// receive Stay with at as the page that remains.
func (h *History) Discard(p *Page, at *Page) {
	h.mu.Lock()
	if h.future == p.e {
		h.future = nil
	}
	h.mu.Unlock()

	p.e.stay(at)
}
