package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// RuleActionBlock vetoes navigations to matching URLs
	RuleActionBlock = "block"
	// RuleActionRedirect sends matching navigations to Target instead
	RuleActionRedirect = "redirect"
	// SectionIDRules is the identifier for the navigation rules section
	SectionIDRules = "navigation_rules"
)

// Rule matches navigation targets by glob pattern on the absolute URL.
type Rule struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	Action      string `json:"action"` // "block" or "redirect"
	Target      string `json:"target,omitempty"`
}

// RulesSection holds the ordered list of block and redirect rules.
type RulesSection struct {
	rules []Rule
	mu    sync.RWMutex
}

// NewRulesSection creates an empty rules section.
func NewRulesSection() *RulesSection {
	return &RulesSection{}
}

// ID returns the section identifier.
func (s *RulesSection) ID() string {
	return SectionIDRules
}

// Title returns the section title.
func (s *RulesSection) Title() string {
	return "Navigation Rules"
}

// Description returns the section description.
func (s *RulesSection) Description() string {
	return "Navigations to URLs matching these glob patterns are blocked or redirected. The first matching rule wins."
}

// Data returns the current configuration data.
func (s *RulesSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]any, len(s.rules))
	for i, r := range s.rules {
		m := map[string]any{
			"pattern":     r.Pattern,
			"description": r.Description,
			"action":      r.Action,
		}
		if r.Target != "" {
			m["target"] = r.Target
		}
		rules[i] = m
	}
	return map[string]any{"rules": rules}
}

// SetData updates the configuration from the provided data.
func (s *RulesSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}
	raw, ok := data["rules"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("invalid rules type: expected list, got %T", raw)
	}

	rules := make([]Rule, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("invalid rule at index %d: expected map, got %T", i, item)
		}

		pattern, ok := m["pattern"].(string)
		if !ok {
			return fmt.Errorf("invalid rule at index %d: missing or invalid pattern field", i)
		}
		r := Rule{Pattern: pattern, Action: RuleActionBlock}

		if v, has := m["description"]; has {
			if r.Description, ok = v.(string); !ok {
				return fmt.Errorf("invalid rule at index %d: description is not a string (got %T)", i, v)
			}
		}
		if v, has := m["action"]; has {
			if r.Action, ok = v.(string); !ok {
				return fmt.Errorf("invalid rule at index %d: action is not a string (got %T)", i, v)
			}
		}
		if v, has := m["target"]; has {
			if r.Target, ok = v.(string); !ok {
				return fmt.Errorf("invalid rule at index %d: target is not a string (got %T)", i, v)
			}
		}
		rules = append(rules, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	return nil
}

// Validate checks every rule compiles and has a usable action.
func (s *RulesSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, r := range s.rules {
		if err := validateRule(r); err != nil {
			return fmt.Errorf("rule at index %d: %w", i, err)
		}
	}
	return nil
}

func validateRule(r Rule) error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("pattern is empty")
	}
	if _, err := glob.Compile(r.Pattern); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	switch r.Action {
	case RuleActionBlock:
	case RuleActionRedirect:
		if strings.TrimSpace(r.Target) == "" {
			return fmt.Errorf("redirect rule %q has no target", r.Pattern)
		}
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	return nil
}

// Reset removes every rule.
func (s *RulesSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = nil
}

// AddRule appends a rule after validating it.
func (s *RulesSection) AddRule(r Rule) error {
	r.Pattern = strings.TrimSpace(r.Pattern)
	if r.Action == "" {
		r.Action = RuleActionBlock
	}
	if err := validateRule(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rules {
		if existing.Pattern == r.Pattern {
			return fmt.Errorf("rule for '%s' already exists", r.Pattern)
		}
	}
	s.rules = append(s.rules, r)
	return nil
}

// RemoveRule removes the rule at index.
func (s *RulesSection) RemoveRule(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.rules) {
		return fmt.Errorf("invalid rule index: %d", index)
	}
	s.rules = append(s.rules[:index], s.rules[index+1:]...)
	return nil
}

// GetRules returns a copy of the rules in match order.
func (s *RulesSection) GetRules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Rule(nil), s.rules...)
}
