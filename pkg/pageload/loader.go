// Package pageload fetches the document behind a navigation page and shares
// it between everyone interested in the same URL.
//
// A Loader holds at most one load. Subscribing to the URL it holds (fragment
// ignored) shares that load; subscribing to another URL cancels it. Once the
// last subscriber leaves, the load is released after one Scheduler turn
// unless someone subscribes again in between. Failed loads are dropped as
// soon as they finish so the next subscriber fetches afresh.
package pageload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/entrhq/waypoint/pkg/logging"
)

// DefaultReleaseDelay is how long an unused load survives by default.
const DefaultReleaseDelay = 50 * time.Millisecond

// Scheduler runs fn later, after the caller's current turn.
type Scheduler func(fn func())

// AfterDelay returns a Scheduler that runs fn on its own goroutine after d.
func AfterDelay(d time.Duration) Scheduler {
	return func(fn func()) {
		time.AfterFunc(d, fn)
	}
}

// Loader deduplicates page fetches.
type Loader struct {
	fetcher  Fetcher
	schedule Scheduler
	logger   *logging.Logger

	mu  sync.Mutex
	cur *load
}

// Option configures a Loader.
type Option func(*Loader)

// WithScheduler sets the Scheduler used to defer releases.
func WithScheduler(s Scheduler) Option {
	return func(l *Loader) {
		l.schedule = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader that fetches through f.
func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{fetcher: f}
	for _, opt := range opts {
		opt(l)
	}
	if l.schedule == nil {
		l.schedule = AfterDelay(DefaultReleaseDelay)
	}
	if l.logger == nil {
		l.logger = logging.Discard("pageload")
	}
	return l
}

type load struct {
	key    string
	refs   int
	epoch  int
	cancel context.CancelFunc
	done   chan struct{}
	resp   *Response
}

// Key returns the cache key for href: the absolute URL without its fragment.
func Key(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", href, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("page url %q is not absolute", href)
	}
	u.Fragment, u.RawFragment = "", ""
	return u.String(), nil
}

// Load subscribes to the page at href, starting a fetch unless one for the
// same key is already held.
func (l *Loader) Load(href string) (*Subscription, error) {
	key, err := Key(href)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if ld := l.cur; ld != nil && ld.key == key {
		ld.refs++
		sharedTotal.Inc()
		return &Subscription{loader: l, load: ld}, nil
	}
	if prev := l.cur; prev != nil {
		l.logger.Debugf("load of %s superseded by %s", prev.key, key)
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	ld := &load{key: key, refs: 1, cancel: cancel, done: make(chan struct{})}
	l.cur = ld
	inflight.Inc()
	go l.fetch(ctx, ld)
	return &Subscription{loader: l, load: ld}, nil
}

// Held returns the key of the load currently held, if any.
func (l *Loader) Held() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return "", false
	}
	return l.cur.key, true
}

func (l *Loader) fetch(ctx context.Context, ld *load) {
	defer inflight.Dec()

	resp, err := l.fetcher.Fetch(ctx, ld.key)
	switch {
	case err != nil:
		resp = failed(ld.key, err)
	case resp == nil:
		resp = failed(ld.key, errors.New("fetcher returned no response"))
	case !resp.OK && resp.Err == nil:
		resp.Err = fmt.Errorf("received status code %d", resp.Status)
	}

	result := "ok"
	if !resp.OK {
		result = "failed"
		if errors.Is(resp.Err, context.Canceled) {
			result = "canceled"
		}
	}
	fetchesTotal.WithLabelValues(result).Inc()

	l.mu.Lock()
	ld.resp = resp
	if !resp.OK && l.cur == ld {
		l.cur = nil
	}
	l.mu.Unlock()
	close(ld.done)

	if resp.OK {
		l.logger.Debugf("loaded %s (%d bytes)", ld.key, len(resp.Body))
	} else {
		l.logger.Warnf("load of %s failed: %v", ld.key, resp.Err)
	}
}

func (l *Loader) release(ld *load) {
	l.mu.Lock()
	ld.refs--
	if ld.refs > 0 {
		l.mu.Unlock()
		return
	}
	ld.epoch++
	epoch := ld.epoch
	l.mu.Unlock()

	l.schedule(func() { l.expire(ld, epoch) })
}

// expire drops ld unless it was subscribed to again since release.
func (l *Loader) expire(ld *load, epoch int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ld.refs > 0 || ld.epoch != epoch {
		return
	}
	if l.cur == ld {
		l.cur = nil
		l.logger.Debugf("released %s", ld.key)
	}
	ld.cancel()
}

// Subscription is one consumer's interest in a load.
type Subscription struct {
	loader *Loader
	load   *load
	once   sync.Once
}

// URL returns the fetched URL, without fragment.
func (s *Subscription) URL() string {
	return s.load.key
}

// Done is closed once the response is available.
func (s *Subscription) Done() <-chan struct{} {
	return s.load.done
}

// Response returns the response if it has arrived.
func (s *Subscription) Response() (*Response, bool) {
	select {
	case <-s.load.done:
		return s.load.resp, true
	default:
		return nil, false
	}
}

// Wait blocks until the response arrives or ctx is done. A failed fetch is
// returned as a Response, not as an error.
func (s *Subscription) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-s.load.done:
		return s.load.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe gives up interest in the load. Calls after the first do nothing.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.loader.release(s.load)
	})
}
