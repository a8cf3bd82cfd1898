package config

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// SectionIDNavigation is the identifier for the navigation settings section
	SectionIDNavigation = "navigation"

	defaultEventBuffer    = 32
	defaultThrottleRate   = 10.0
	defaultThrottleBurst  = 5
	defaultCacheBustParam = "_wp"
	defaultLogLevel       = "info"
)

func defaultAgents() []string {
	return []string{"trace", "rules"}
}

// NavigationSection configures the navigation agent chain and event delivery.
type NavigationSection struct {
	// Agents names the stock agents to install, in chain order.
	Agents            []string
	EventBuffer       int
	ThrottleRate      float64 // navigations per second; 0 disables the throttle
	ThrottleBurst     int
	CacheBustParam    string
	CacheBustPatterns []string
	LogLevel          string
	mu                sync.RWMutex
}

// NewNavigationSection creates a navigation section with default settings.
func NewNavigationSection() *NavigationSection {
	s := &NavigationSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *NavigationSection) ID() string {
	return SectionIDNavigation
}

// Title returns the section title.
func (s *NavigationSection) Title() string {
	return "Navigation"
}

// Description returns the section description.
func (s *NavigationSection) Description() string {
	return "Agent chain order, navigation throttling, cache busting and event stream buffering."
}

// Data returns the current configuration data.
func (s *NavigationSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"agents":              append([]string(nil), s.Agents...),
		"event_buffer":        s.EventBuffer,
		"throttle_rate":       s.ThrottleRate,
		"throttle_burst":      s.ThrottleBurst,
		"cache_bust_param":    s.CacheBustParam,
		"cache_bust_patterns": append([]string(nil), s.CacheBustPatterns...),
		"log_level":           s.LogLevel,
	}
}

// SetData updates the configuration from the provided data. Unknown keys are
// ignored.
func (s *NavigationSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "agents":
			s.Agents, err = toStrings(key, value)
		case "event_buffer":
			s.EventBuffer, err = toInt(key, value)
		case "throttle_rate":
			s.ThrottleRate, err = toFloat(key, value)
		case "throttle_burst":
			s.ThrottleBurst, err = toInt(key, value)
		case "cache_bust_param":
			s.CacheBustParam, err = toString(key, value)
		case "cache_bust_patterns":
			s.CacheBustPatterns, err = toStrings(key, value)
		case "log_level":
			s.LogLevel, err = toString(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *NavigationSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.Agents))
	for i, name := range s.Agents {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("agent at index %d is empty", i)
		}
		if seen[name] {
			return fmt.Errorf("agent %q listed twice", name)
		}
		seen[name] = true
	}
	if s.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must not be negative, got %d", s.EventBuffer)
	}
	if s.ThrottleRate < 0 {
		return fmt.Errorf("throttle_rate must not be negative, got %v", s.ThrottleRate)
	}
	if s.ThrottleRate > 0 && s.ThrottleBurst < 1 {
		return fmt.Errorf("throttle_burst must be at least 1 when throttling, got %d", s.ThrottleBurst)
	}
	if seen["cache_bust"] && strings.TrimSpace(s.CacheBustParam) == "" {
		return fmt.Errorf("cache_bust_param is required when the cache_bust agent is enabled")
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *NavigationSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Agents = defaultAgents()
	s.EventBuffer = defaultEventBuffer
	s.ThrottleRate = defaultThrottleRate
	s.ThrottleBurst = defaultThrottleBurst
	s.CacheBustParam = defaultCacheBustParam
	s.CacheBustPatterns = nil
	s.LogLevel = defaultLogLevel
}

// GetAgents returns the configured agent names in chain order.
func (s *NavigationSection) GetAgents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.Agents...)
}

// SetAgents replaces the agent list.
func (s *NavigationSection) SetAgents(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Agents = append([]string(nil), names...)
}

// GetEventBuffer returns the event stream buffer size.
func (s *NavigationSection) GetEventBuffer() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.EventBuffer
}

// GetThrottle returns the navigation rate limit and burst.
func (s *NavigationSection) GetThrottle() (float64, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ThrottleRate, s.ThrottleBurst
}

// GetCacheBust returns the cache-busting query parameter and the URL
// patterns it applies to. No patterns means every URL.
func (s *NavigationSection) GetCacheBust() (string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CacheBustParam, append([]string(nil), s.CacheBustPatterns...)
}

// GetLogLevel returns the configured log level name.
func (s *NavigationSection) GetLogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LogLevel
}
