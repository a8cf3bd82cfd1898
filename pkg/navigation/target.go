package navigation

import (
	"fmt"
	"net/url"
)

// Target is a normalized navigation destination. URL is always absolute once
// a Target reaches the agent chain.
type Target struct {
	URL   *url.URL
	Data  any
	Title string
}

// Href returns the absolute URL string, or "" when URL is unset.
func (t Target) Href() string {
	if t.URL == nil {
		return ""
	}
	return t.URL.String()
}

func (t Target) clone() Target {
	if t.URL != nil {
		u := *t.URL
		t.URL = &u
	}
	return t
}

// Resolve normalizes v into a Target relative to base. v may be a string,
// *url.URL, url.URL, Target or *Target.
func Resolve(base *url.URL, v any) (Target, error) {
	switch t := v.(type) {
	case string:
		ref, err := url.Parse(t)
		if err != nil {
			return Target{}, fmt.Errorf("invalid navigation url %q: %w", t, err)
		}
		return resolveTarget(base, Target{URL: ref})
	case *url.URL:
		if t == nil {
			return Target{}, fmt.Errorf("navigation url is nil")
		}
		return resolveTarget(base, Target{URL: t})
	case url.URL:
		return resolveTarget(base, Target{URL: &t})
	case Target:
		return resolveTarget(base, t)
	case *Target:
		if t == nil {
			return Target{}, fmt.Errorf("navigation target is nil")
		}
		return resolveTarget(base, *t)
	default:
		return Target{}, fmt.Errorf("unsupported navigation target %T", v)
	}
}

func resolveTarget(base *url.URL, t Target) (Target, error) {
	if t.URL == nil {
		if base == nil {
			return Target{}, fmt.Errorf("navigation target has no url")
		}
		t.URL = base
	}
	u, err := resolveURL(base, t.URL)
	if err != nil {
		return Target{}, err
	}
	t.URL = u
	return t, nil
}

func resolveURL(base, ref *url.URL) (*url.URL, error) {
	if ref.IsAbs() {
		u := *ref
		return &u, nil
	}
	if base == nil {
		return nil, fmt.Errorf("cannot resolve relative url %q without a current page", ref.String())
	}
	return base.ResolveReference(ref), nil
}

// sameDocument reports whether a and b differ at most in their fragment.
func sameDocument(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	x, y := *a, *b
	x.Fragment, x.RawFragment = "", ""
	y.Fragment, y.RawFragment = "", ""
	return x.String() == y.String()
}
