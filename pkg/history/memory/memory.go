// Package memory provides an in-process native history with browser
// semantics: a stack of entries and a cursor, where pushing truncates forward
// entries and traversal reports popstate to an attached listener.
package memory

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/navigation"
)

// Entry is one native history entry.
type Entry struct {
	Href  string
	Title string
	State any
}

// History is a navigation.NativeHistory kept in memory.
type History struct {
	mu       sync.Mutex
	entries  []Entry
	index    int
	reloads  int
	listener navigation.NativeListener
	logger   *logging.Logger
}

// Option configures a History.
type Option func(*History)

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(h *History) {
		h.logger = l
	}
}

// New creates a history holding a single entry at href.
func New(href string, state any, opts ...Option) *History {
	h := &History{entries: []Entry{{Href: href, State: state}}}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.Discard("history")
	}
	return h
}

// Attach sets the listener that receives popstate and hashchange.
func (h *History) Attach(l navigation.NativeListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index].Href
}

func (h *History) State() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index].State
}

func (h *History) PushState(data any, title, href string) error {
	if err := h.checkOrigin(href); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.index+1], Entry{Href: href, Title: title, State: data})
	h.index++
	return nil
}

func (h *History) ReplaceState(data any, title, href string) error {
	if err := h.checkOrigin(href); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.index] = Entry{Href: href, Title: title, State: data}
	return nil
}

// Go moves the cursor by delta and reports the landing entry. A delta that
// leaves the stack is ignored, as browsers do. Go(0) reloads.
func (h *History) Go(delta int) error {
	if delta == 0 {
		return h.Reload()
	}

	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		index, n := h.index, len(h.entries)
		h.mu.Unlock()
		h.logger.Debugf("ignoring go(%d) at %d of %d", delta, index, n)
		return nil
	}
	from := h.entries[h.index]
	to := h.entries[next]
	h.index = next
	l := h.listener
	h.mu.Unlock()

	if l == nil {
		return nil
	}
	l.PopState(to.State, to.Href)
	if fragmentMove(from.Href, to.Href) {
		l.HashChange(to.Href)
	}
	return nil
}

func (h *History) Reload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
	return nil
}

// Fragment follows an in-page link to #frag: it pushes an entry with no state
// and reports a hashchange, like a click on an anchor would.
func (h *History) Fragment(frag string) error {
	h.mu.Lock()
	cur, err := url.Parse(h.entries[h.index].Href)
	if err != nil {
		h.mu.Unlock()
		return fmt.Errorf("current entry has invalid url: %w", err)
	}
	if cur.Fragment == frag {
		h.mu.Unlock()
		return nil
	}
	cur.Fragment = frag
	href := cur.String()
	h.entries = append(h.entries[:h.index+1], Entry{Href: href})
	h.index++
	l := h.listener
	h.mu.Unlock()

	if l != nil {
		l.HashChange(href)
	}
	return nil
}

// Entries returns a copy of the stack and the cursor position.
func (h *History) Entries() ([]Entry, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...), h.index
}

// Reloads returns how many times Reload was called.
func (h *History) Reloads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads
}

// checkOrigin rejects entries on another origin, which browsers refuse too.
func (h *History) checkOrigin(href string) error {
	u, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("invalid history url %q: %w", href, err)
	}
	cur, err := url.Parse(h.Location())
	if err != nil {
		return fmt.Errorf("current entry has invalid url: %w", err)
	}
	if u.Scheme != cur.Scheme || u.Host != cur.Host {
		return fmt.Errorf("history url %s is not same-origin with %s", href, cur)
	}
	return nil
}

func fragmentMove(from, to string) bool {
	a, errA := url.Parse(from)
	b, errB := url.Parse(to)
	if errA != nil || errB != nil || a.Fragment == b.Fragment {
		return false
	}
	a.Fragment, b.Fragment = "", ""
	a.RawFragment, b.RawFragment = "", ""
	return a.String() == b.String()
}
