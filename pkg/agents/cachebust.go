package agents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/waypoint/pkg/navigation"
)

// CacheBust stamps a query parameter with the current time onto target URLs
// so intermediaries cannot serve a stale copy.
type CacheBust struct {
	param    string
	patterns []glob.Glob
	now      func() time.Time
}

// NewCacheBust busts every URL matching one of patterns, or every URL when
// patterns is empty.
func NewCacheBust(param string, patterns []string) (*CacheBust, error) {
	if param == "" {
		return nil, fmt.Errorf("cache-bust parameter name is empty")
	}
	c := &CacheBust{param: param, now: time.Now}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid cache-bust pattern '%s': %w", p, err)
		}
		c.patterns = append(c.patterns, g)
	}
	return c, nil
}

func (c *CacheBust) applies(href string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, g := range c.patterns {
		if g.Match(href) {
			return true
		}
	}
	return false
}

func (c *CacheBust) Intercept(ctx context.Context, cur *navigation.Cursor, req navigation.Request) error {
	if req.Target.URL == nil || !c.applies(req.Target.Href()) {
		return cur.Next(ctx)
	}

	stamp := strconv.FormatInt(c.now().UnixMilli(), 36)
	return cur.Next(ctx, func(t *navigation.Target) error {
		u := *t.URL
		q := u.Query()
		q.Set(c.param, stamp)
		u.RawQuery = q.Encode()
		t.URL = &u
		return nil
	})
}
