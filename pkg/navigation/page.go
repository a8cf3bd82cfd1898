package navigation

import (
	"fmt"
	"net/url"
)

// Page is the outside view of one history entry. Every Page is backed by
// exactly one entry for its whole life.
type Page struct {
	e *entry
}

// ID returns the entry id stamped into native history state.
func (p *Page) ID() int64 {
	return p.e.id
}

// URL returns a copy of the page's resolved URL.
func (p *Page) URL() *url.URL {
	return p.e.getTarget().URL
}

// Href returns the page URL as a string.
func (p *Page) Href() string {
	return p.e.getTarget().Href()
}

// Data returns the caller-supplied history data.
func (p *Page) Data() any {
	return p.e.getTarget().Data
}

// Title returns the page title, or "".
func (p *Page) Title() string {
	return p.e.getTarget().Title
}

// Target returns URL, data and title together.
func (p *Page) Target() Target {
	return p.e.getTarget()
}

// Visited reports whether the page has been current at least once.
func (p *Page) Visited() bool {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return p.e.visited
}

// Current reports whether the page is the history's current page.
func (p *Page) Current() bool {
	return p.e.history.isCurrent(p.e)
}

func (p *Page) String() string {
	return fmt.Sprintf("page#%d(%s)", p.e.id, p.Href())
}
