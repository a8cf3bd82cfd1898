package navigation

import (
	"context"
	"sync"
	"sync/atomic"
)

// When names the transition an event or lifecycle call belongs to.
type When string

const (
	WhenInit       When = "init"        // first page of a Navigation
	WhenOpen       When = "open"        // committed Open
	WhenReplace    When = "replace"     // committed Replace or Update
	WhenReturn     When = "return"      // native back/forward
	WhenEnter      When = "enter"       // fragment-only change on the current page
	WhenPreOpen    When = "pre-open"    // pending Open, before agents
	WhenPreReplace When = "pre-replace" // pending Replace, before agents
	WhenStay       When = "stay"        // navigation did not take effect
)

// Event is one of EnterEvent, *LeaveEvent or StayEvent.
type Event interface {
	Kind() string
}

// EnterEvent reports that Page became (or, for WhenEnter, remains) current.
type EnterEvent struct {
	When When
	Page *Page
	From *Page
	// Discontinuity is set when native history landed on an entry this
	// History does not know, and Page was started fresh from its data.
	Discontinuity bool
}

// Kind returns "enter".
func (EnterEvent) Kind() string { return "enter" }

// LeaveEvent announces a pending navigation. Any listener may Cancel it.
type LeaveEvent struct {
	When     When
	From     *Page
	To       *Page
	canceled atomic.Bool
}

// Kind returns "leave".
func (*LeaveEvent) Kind() string { return "leave" }

// Cancel vetoes the pending navigation.
func (e *LeaveEvent) Cancel() {
	e.canceled.Store(true)
}

// Canceled reports whether a listener called Cancel.
func (e *LeaveEvent) Canceled() bool {
	return e.canceled.Load()
}

// StayEvent reports a navigation that did not take effect.
type StayEvent struct {
	At     *Page  // page that remains current
	To     *Page  // speculative page, nil when superseded before one was built
	Target Target // target as requested
	Reason error  // set when the navigation failed
	// Superseded is set when a newer request replaced this one.
	Superseded bool
}

// Kind returns "stay".
func (StayEvent) Kind() string { return "stay" }

// When returns WhenStay.
func (StayEvent) When() When { return WhenStay }

type listener struct {
	id    int
	enter func(EnterEvent)
	leave func(*LeaveEvent)
	stay  func(StayEvent)
}

// emitter fans events out synchronously, in subscription order.
type emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
}

func (em *emitter) add(l listener) func() {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.nextID++
	l.id = em.nextID
	em.listeners = append(em.listeners, l)

	id := l.id
	var once sync.Once
	return func() {
		once.Do(func() { em.remove(id) })
	}
}

func (em *emitter) remove(id int) {
	em.mu.Lock()
	defer em.mu.Unlock()

	for i, l := range em.listeners {
		if l.id == id {
			em.listeners = append(em.listeners[:i:i], em.listeners[i+1:]...)
			return
		}
	}
}

func (em *emitter) snapshot() []listener {
	em.mu.Lock()
	defer em.mu.Unlock()
	return append([]listener(nil), em.listeners...)
}

func (em *emitter) emitEnter(e EnterEvent) {
	for _, l := range em.snapshot() {
		if l.enter != nil {
			l.enter(e)
		}
	}
}

// emitLeave runs every leave listener; cancellation is read afterwards.
func (em *emitter) emitLeave(e *LeaveEvent) bool {
	for _, l := range em.snapshot() {
		if l.leave != nil {
			l.leave(e)
		}
	}
	return e.Canceled()
}

func (em *emitter) emitStay(e StayEvent) {
	for _, l := range em.snapshot() {
		if l.stay != nil {
			l.stay(e)
		}
	}
}

// watch streams every event to a buffered channel until ctx is done. Events
// that do not fit in the buffer are dropped and reported to onDrop.
func (em *emitter) watch(ctx context.Context, buffer int, onDrop func(Event)) <-chan Event {
	ch := make(chan Event, buffer)
	var mu sync.Mutex
	closed := false

	send := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ev:
		default:
			if onDrop != nil {
				onDrop(ev)
			}
		}
	}

	unsubscribe := em.add(listener{
		enter: func(e EnterEvent) { send(e) },
		leave: func(e *LeaveEvent) { send(e) },
		stay:  func(e StayEvent) { send(e) },
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}
