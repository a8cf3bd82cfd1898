package navigation

import (
	"fmt"
)

// Param is a kind of per-page state. A Param is compared by pointer identity:
// one page entry holds at most one handle per *Param.
type Param[T, O any] struct {
	name   string
	create func(to *Page, when When, options O) (Handle[T, O], error)
}

// NewParam builds a Param whose handles come from create. create receives the
// page the handle is attached to and the transition that page is part of.
func NewParam[T, O any](name string, create func(to *Page, when When, options O) (Handle[T, O], error)) *Param[T, O] {
	return &Param[T, O]{name: name, create: create}
}

// Name returns the diagnostic name given at construction.
func (p *Param[T, O]) Name() string {
	return p.name
}

// Handle is the per-entry instance of a Param.
//
// Handles may also implement Enterer, Leaver, Stayer, Forgetter and
// Transferer to take part in the owning entry's lifecycle.
type Handle[T, O any] interface {
	Get() T
	// Refine is called when the param is put again on an entry that already
	// holds a handle for it.
	Refine(options O) error
}

// Enterer is notified when the owning entry becomes current.
type Enterer interface {
	Enter(page *Page, when When)
}

// Leaver is notified when the owning entry stops being current but stays
// reachable through back/forward.
type Leaver interface {
	Leave()
}

// Stayer is notified when the speculative entry holding the handle is dropped
// because its navigation did not commit. at is the page that remains current.
type Stayer interface {
	Stay(at *Page)
}

// Forgetter is notified once, when the owning entry is pruned from history.
type Forgetter interface {
	Forget()
}

// Transferer lets a handle seed state on the next entry when navigating away.
// Handles without it do not carry over.
type Transferer interface {
	Transfer(to *Page, when When) error
}

// Put attaches options for param to page, creating the handle on first use and
// refining it afterwards. It returns the handle's current value.
func Put[T, O any](page *Page, param *Param[T, O], options O) (T, error) {
	var zero T
	e := page.e

	if existing, ok := e.handle(param); ok {
		return refine(existing.(Handle[T, O]), param, options)
	}

	h, err := param.create(page, e.transition(), options)
	if err != nil {
		return zero, fmt.Errorf("create page param %s: %w", param.name, err)
	}
	if h == nil {
		return zero, fmt.Errorf("create page param %s: nil handle", param.name)
	}

	if existing, stored := e.store(param, h); !stored {
		// Another caller attached the param first; keep theirs.
		if f, ok := h.(Forgetter); ok {
			f.Forget()
		}
		if existing == nil {
			return zero, fmt.Errorf("page %d is no longer tracked", e.id)
		}
		return refine(existing.(Handle[T, O]), param, options)
	}
	return h.Get(), nil
}

func refine[T, O any](h Handle[T, O], param *Param[T, O], options O) (T, error) {
	if err := h.Refine(options); err != nil {
		var zero T
		return zero, fmt.Errorf("refine page param %s: %w", param.name, err)
	}
	return h.Get(), nil
}

// Get returns the value of param on page. Absence is not an error.
func Get[T, O any](page *Page, param *Param[T, O]) (T, bool) {
	h, ok := page.e.handle(param)
	if !ok {
		var zero T
		return zero, false
	}
	return h.(Handle[T, O]).Get(), true
}

// Mutator prepares a speculative page before its navigation runs the agent
// chain.
type Mutator func(to *Page) error

// With returns a Mutator that puts param on the page being navigated to.
func With[T, O any](param *Param[T, O], options O) Mutator {
	return func(to *Page) error {
		_, err := Put(to, param, options)
		return err
	}
}

// NewValueParam returns a Param holding a plain value. With carry set, the
// value is copied onto every page navigated to from a page holding it.
func NewValueParam[T any](name string, carry bool) *Param[T, T] {
	var p *Param[T, T]
	p = NewParam(name, func(_ *Page, _ When, v T) (Handle[T, T], error) {
		return &valueHandle[T]{param: p, value: v, carry: carry}, nil
	})
	return p
}

type valueHandle[T any] struct {
	param *Param[T, T]
	value T
	carry bool
}

func (h *valueHandle[T]) Get() T { return h.value }

func (h *valueHandle[T]) Refine(v T) error {
	h.value = v
	return nil
}

func (h *valueHandle[T]) Transfer(to *Page, _ When) error {
	if !h.carry {
		return nil
	}
	_, err := Put(to, h.param, h.value)
	return err
}
