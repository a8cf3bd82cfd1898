package pageload

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/waypoint/pkg/navigation"
)

// Options configures the page-load param on one page.
type Options struct {
	// Follow carries the param to every page navigated to from this one.
	// Without it the param only follows fragment-only moves.
	Follow bool
}

// NewParam returns a navigation param that keeps the page's document
// subscribed through l while the page is current or about to be.
func NewParam(l *Loader) *navigation.Param[*Subscription, Options] {
	var p *navigation.Param[*Subscription, Options]
	p = navigation.NewParam("pageload", func(to *navigation.Page, _ navigation.When, opts Options) (navigation.Handle[*Subscription, Options], error) {
		sub, err := l.Load(to.Href())
		if err != nil {
			return nil, err
		}
		return &handle{param: p, loader: l, page: to, sub: sub, opts: opts}, nil
	})
	return p
}

// Wait returns the response for page's load, subscribing first if the page
// was left.
func Wait(ctx context.Context, page *navigation.Page, param *navigation.Param[*Subscription, Options]) (*Response, error) {
	sub, ok := navigation.Get(page, param)
	if !ok {
		return nil, fmt.Errorf("page %d has no %s param", page.ID(), param.Name())
	}
	if sub == nil {
		return nil, fmt.Errorf("page %d is not loading", page.ID())
	}
	return sub.Wait(ctx)
}

type handle struct {
	param  *navigation.Param[*Subscription, Options]
	loader *Loader
	page   *navigation.Page

	mu   sync.Mutex
	sub  *Subscription
	opts Options
}

func (h *handle) Get() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sub
}

// Refine takes new options and follows a URL change of the page.
func (h *handle) Refine(opts Options) error {
	h.mu.Lock()
	h.opts = opts
	h.mu.Unlock()
	return h.resubscribe()
}

func (h *handle) Enter(*navigation.Page, navigation.When) {
	if err := h.resubscribe(); err != nil {
		h.loader.logger.Warnf("failed to resubscribe page %d: %v", h.page.ID(), err)
	}
}

func (h *handle) Leave() {
	h.drop()
}

func (h *handle) Stay(*navigation.Page) {
	h.drop()
}

func (h *handle) Forget() {
	h.drop()
}

func (h *handle) Transfer(to *navigation.Page, _ navigation.When) error {
	h.mu.Lock()
	opts := h.opts
	h.mu.Unlock()

	if !opts.Follow {
		from, errFrom := Key(h.page.Href())
		next, errTo := Key(to.Href())
		if errFrom != nil || errTo != nil || from != next {
			return nil
		}
	}
	_, err := navigation.Put(to, h.param, opts)
	return err
}

// resubscribe makes sure the handle holds a subscription for the page's
// current URL. The new subscription is taken before the old one is dropped.
func (h *handle) resubscribe() error {
	key, err := Key(h.page.Href())
	if err != nil {
		return err
	}

	h.mu.Lock()
	old := h.sub
	h.mu.Unlock()
	if old != nil && old.URL() == key {
		return nil
	}

	sub, err := h.loader.Load(h.page.Href())
	if err != nil {
		return err
	}
	h.mu.Lock()
	old, h.sub = h.sub, sub
	h.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	return nil
}

func (h *handle) drop() {
	h.mu.Lock()
	sub := h.sub
	h.sub = nil
	h.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
