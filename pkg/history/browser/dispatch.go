package browser

import (
	"fmt"
	"sync"
)

type eventKind int

const (
	eventPopState eventKind = iota
	eventHashChange
	eventLoad
)

type nativeEvent struct {
	kind  eventKind
	state any
	href  string
}

// parseNotification decodes the arguments the page passes to the binding:
// kind, state and href.
func parseNotification(args []interface{}) (nativeEvent, error) {
	if len(args) != 3 {
		return nativeEvent{}, fmt.Errorf("expected 3 arguments, got %d", len(args))
	}
	kind, _ := args[0].(string)
	href, ok := args[2].(string)
	if !ok || href == "" {
		return nativeEvent{}, fmt.Errorf("missing location")
	}
	switch kind {
	case "popstate":
		return nativeEvent{kind: eventPopState, state: args[1], href: href}, nil
	case "hashchange":
		return nativeEvent{kind: eventHashChange, href: href}, nil
	default:
		return nativeEvent{}, fmt.Errorf("unknown event %q", kind)
	}
}

// dispatcher delivers events one at a time, in arrival order, on its own
// goroutine. post never blocks.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []nativeEvent
	closed  bool
	deliver func(nativeEvent)
	done    chan struct{}
}

func newDispatcher(deliver func(nativeEvent)) *dispatcher {
	d := &dispatcher{deliver: deliver, done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *dispatcher) post(ev nativeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, ev)
	d.cond.Signal()
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.deliver(ev)
	}
}

// close drops pending events and waits for an in-flight delivery to finish.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.queue = nil
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}
