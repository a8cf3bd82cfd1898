package browser

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/navigation"
)

const bindingName = "__waypointNotify"

// notifyScript runs in every document loaded into the page and forwards
// history events to the Go side.
const notifyScript = `(() => {
  if (window.__waypointInstalled) return;
  window.__waypointInstalled = true;
  window.addEventListener('popstate', (e) => window.` + bindingName + `('popstate', e.state, location.href));
  window.addEventListener('hashchange', () => window.` + bindingName + `('hashchange', null, location.href));
})();`

const (
	pushScript    = `(a) => history.pushState(JSON.parse(a.data), a.title, a.url)`
	replaceScript = `(a) => history.replaceState(JSON.parse(a.data), a.title, a.url)`
	stateScript   = `() => history.state`
	goScript      = `(d) => history.go(d)`
)

// page is the part of playwright.Page History drives.
type page interface {
	URL() string
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	Reload(options ...playwright.PageReloadOptions) (playwright.Response, error)
	ExposeBinding(name string, binding playwright.BindingCallFunction, handle ...bool) error
	AddInitScript(script playwright.Script) error
	OnLoad(fn func(playwright.Page))
}

// History is a navigation.NativeHistory backed by a browser page.
type History struct {
	session *Session
	page    page
	events  *dispatcher
	logger  *logging.Logger

	mu       sync.Mutex
	listener navigation.NativeListener
}

func newHistory(s *Session, logger *logging.Logger) (*History, error) {
	h := &History{session: s, page: s.page, logger: logger}
	if err := h.install(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *History) install() error {
	h.events = newDispatcher(h.deliver)
	if err := h.page.ExposeBinding(bindingName, h.notify); err != nil {
		return fmt.Errorf("failed to expose history binding: %w", err)
	}
	if err := h.page.AddInitScript(playwright.Script{Content: playwright.String(notifyScript)}); err != nil {
		return fmt.Errorf("failed to install history script: %w", err)
	}
	// A fresh document (reload, or traversal across documents) reports its
	// restored state so the listener can re-synchronize.
	h.page.OnLoad(func(playwright.Page) {
		h.events.post(nativeEvent{kind: eventLoad})
	})
	return nil
}

// notify is called by the page on the driver's goroutine. Delivery happens on
// the dispatcher so listeners may call back into the page.
func (h *History) notify(_ *playwright.BindingSource, args ...interface{}) interface{} {
	ev, err := parseNotification(args)
	if err != nil {
		h.logger.Warnf("ignoring history notification: %v", err)
		return nil
	}
	h.events.post(ev)
	return nil
}

func (h *History) deliver(ev nativeEvent) {
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()
	if l == nil {
		return
	}

	switch ev.kind {
	case eventPopState:
		l.PopState(ev.state, ev.href)
	case eventHashChange:
		l.HashChange(ev.href)
	case eventLoad:
		l.PopState(h.State(), h.Location())
	}
}

// Attach sets the listener that receives popstate and hashchange.
func (h *History) Attach(l navigation.NativeListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

func (h *History) Location() string {
	return h.page.URL()
}

func (h *History) State() any {
	state, err := h.page.Evaluate(stateScript)
	if err != nil {
		h.logger.Warnf("failed to read history state: %v", err)
		return nil
	}
	return state
}

func (h *History) PushState(data any, title, url string) error {
	return h.write(pushScript, data, title, url)
}

func (h *History) ReplaceState(data any, title, url string) error {
	return h.write(replaceScript, data, title, url)
}

func (h *History) write(script string, data any, title, url string) error {
	args, err := stateArgs(data, title, url)
	if err != nil {
		return err
	}
	if _, err := h.page.Evaluate(script, args); err != nil {
		return fmt.Errorf("history update to %s failed: %w", url, err)
	}
	return nil
}

func (h *History) Go(delta int) error {
	if delta == 0 {
		return h.Reload()
	}
	if _, err := h.page.Evaluate(goScript, delta); err != nil {
		return fmt.Errorf("history traversal failed: %w", err)
	}
	return nil
}

func (h *History) Reload() error {
	if _, err := h.page.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// Session returns the browser session behind h.
func (h *History) Session() *Session {
	return h.session
}

// Close stops event delivery and shuts the browser down.
func (h *History) Close() error {
	if h.events != nil {
		h.events.close()
	}
	if h.session == nil {
		return nil
	}
	return h.session.Close()
}

// stateArgs encodes data as JSON text so it crosses into the page as a
// plain structured-clone value.
func stateArgs(data any, title, url string) (map[string]interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("history state is not serializable: %w", err)
	}
	return map[string]interface{}{
		"data":  string(raw),
		"title": title,
		"url":   url,
	}, nil
}
