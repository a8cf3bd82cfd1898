package agents

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/waypoint/pkg/config"
	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/navigation"
)

type compiledRule struct {
	rule config.Rule
	glob glob.Glob
}

// Rules blocks or redirects navigations whose target URL matches a glob
// pattern. The first matching rule decides; non-matching navigations pass.
type Rules struct {
	rules  []compiledRule
	logger *logging.Logger
}

// NewRules compiles rules in order.
func NewRules(rules []config.Rule, logger *logging.Logger) (*Rules, error) {
	if logger == nil {
		logger = logging.Discard("rules")
	}
	r := &Rules{logger: logger}
	for _, rule := range rules {
		g, err := glob.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid rule pattern '%s': %w", rule.Pattern, err)
		}
		r.rules = append(r.rules, compiledRule{rule: rule, glob: g})
	}
	return r, nil
}

// Match returns the first rule matching href.
func (r *Rules) Match(href string) (config.Rule, bool) {
	for _, c := range r.rules {
		if c.glob.Match(href) {
			return c.rule, true
		}
	}
	return config.Rule{}, false
}

func (r *Rules) Intercept(ctx context.Context, cur *navigation.Cursor, req navigation.Request) error {
	href := req.Target.Href()
	rule, ok := r.Match(href)
	if !ok {
		return cur.Next(ctx)
	}

	switch rule.Action {
	case config.RuleActionRedirect:
		r.logger.Infof("redirecting %s to %s (%s)", href, rule.Target, rule.Pattern)
		return cur.Next(ctx, navigation.RedirectTo(rule.Target))
	default:
		r.logger.Infof("blocked %s by rule %s", href, rule.Pattern)
		return nil
	}
}
